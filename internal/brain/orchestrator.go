package brain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// Config holds run-independent orchestrator settings
type Config struct {
	Delay      time.Duration // minimum spacing between provider calls
	Timeout    time.Duration // per-call timeout
	Workers    int
	FlushEvery int // flush the cache every N writes (0 = only at run end)

	Clock    func() time.Time
	NewRunID func() string
}

// DefaultConfig returns sequential fetching with a 100ms courtesy delay
func DefaultConfig() Config {
	return Config{
		Delay:      100 * time.Millisecond,
		Timeout:    15 * time.Second,
		Workers:    1,
		FlushEvery: 50,
	}
}

// RunOptions selects mode and cache behavior for one run
type RunOptions struct {
	Mode         contracts.Mode
	ForceRefresh bool   // skip cache lookups and always fetch
	Tag          string // results store tag; defaults to the mode
	Universe     string // universe name recorded in the batch
	Progress     ProgressFunc
}

// Orchestrator runs the dual-track screening over a universe
// ⭐ SSOT: 스크리닝 실행 조율은 여기서만
type Orchestrator struct {
	source contracts.MetricSource
	cache  *metriccache.Cache
	store  contracts.ResultsStore
	config Config
	logger *logger.Logger
}

// NewOrchestrator creates a new orchestrator. store may be nil.
func NewOrchestrator(
	source contracts.MetricSource,
	cache *metriccache.Cache,
	store contracts.ResultsStore,
	config Config,
	log *logger.Logger,
) *Orchestrator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.NewRunID == nil {
		config.NewRunID = func() string { return uuid.NewString() }
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Orchestrator{
		source: source,
		cache:  cache,
		store:  store,
		config: config,
		logger: log.WithComponent("orchestrator"),
	}
}

// fetched is the per-instrument outcome of the cache/fetch phase
type fetched struct {
	inst        contracts.Instrument
	snapshot    *contracts.MetricSnapshot
	unavailable bool
	source      Source
}

// Run screens universe and returns the completed batch.
// Invalid thresholds abort before any fetch. Per-instrument failures never
// abort the run. A persistence error is returned together with the batch.
func (o *Orchestrator) Run(
	ctx context.Context,
	universe []contracts.Instrument,
	thresholds screenconfig.Thresholds,
	opts RunOptions,
) (*contracts.ScreeningBatch, error) {
	if err := screenconfig.Validate(thresholds); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}

	mode, err := contracts.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	hash, err := screenconfig.Hash(thresholds)
	if err != nil {
		return nil, fmt.Errorf("hash thresholds: %w", err)
	}

	runID := o.config.NewRunID()
	tag := opts.Tag
	if tag == "" {
		tag = string(mode)
	}

	instruments := dedupe(universe)
	startTime := time.Now()
	log := o.logger.WithRun(runID, tag)

	log.WithFields(map[string]interface{}{
		"mode":          mode,
		"universe":      opts.Universe,
		"instruments":   len(instruments),
		"force_refresh": opts.ForceRefresh,
		"workers":       o.config.Workers,
	}).Info("Starting screening run")

	items := o.gather(ctx, runID, instruments, opts)

	var errs []error
	if err := o.cache.Flush(ctx); err != nil {
		log.WithError(err).Warn("Final cache flush failed")
		errs = append(errs, err)
	}

	results := evaluate(items, thresholds, mode, log)

	batch := &contracts.ScreeningBatch{
		RunID:          runID,
		Timestamp:      o.config.Clock().UTC(),
		Mode:           mode,
		Tag:            tag,
		Universe:       opts.Universe,
		ThresholdsHash: hash,
		TotalScreened:  len(results),
		Results:        results,
	}
	for _, r := range results {
		if r.Passed {
			batch.TotalPassed++
		}
	}

	if o.store != nil {
		location, err := o.store.Save(ctx, batch)
		if err != nil {
			log.WithError(err).Error("Failed to persist screening batch")
			errs = append(errs, fmt.Errorf("persist batch: %w", err))
		} else {
			log.WithField("location", location).Info("Screening batch saved")
		}
	}

	log.WithFields(map[string]interface{}{
		"screened": batch.TotalScreened,
		"passed":   batch.TotalPassed,
		"duration": time.Since(startTime).String(),
	}).Info("Screening run completed")

	return batch, errors.Join(errs...)
}

// gather resolves every instrument through the cache or the provider.
// Results are index-stable, so worker scheduling never changes the batch.
func (o *Orchestrator) gather(
	ctx context.Context,
	runID string,
	instruments []contracts.Instrument,
	opts RunOptions,
) []fetched {
	items := make([]fetched, len(instruments))
	total := len(instruments)

	var limiter *rate.Limiter
	if o.config.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(o.config.Delay), 1)
	}

	var (
		writes     int64
		done       int
		progressMu sync.Mutex
	)

	afterWrite := func() {
		n := atomic.AddInt64(&writes, 1)
		if o.config.FlushEvery > 0 && n%int64(o.config.FlushEvery) == 0 {
			if err := o.cache.Flush(ctx); err != nil {
				o.logger.WithError(err).Warn("Periodic cache flush failed")
			}
		}
	}

	report := func(item fetched) {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		opts.Progress(Progress{
			RunID:  runID,
			Done:   done,
			Total:  total,
			Symbol: item.inst.Symbol,
			Source: item.source,
		})
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = o.resolve(ctx, instruments[i], opts.ForceRefresh, limiter, afterWrite)
				report(items[i])
			}
		}()
	}

	for i := range instruments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return items
}

// resolve runs the cache → provider sequence for one instrument
func (o *Orchestrator) resolve(
	ctx context.Context,
	inst contracts.Instrument,
	force bool,
	limiter *rate.Limiter,
	afterWrite func(),
) fetched {
	item := fetched{inst: inst}

	if !force {
		switch lookup := o.cache.Get(inst.Symbol); lookup.State {
		case metriccache.Hit:
			snap := lookup.Snapshot
			snap.Symbol = inst.Symbol
			item.snapshot = &snap
			item.source = SourceCache
			return item
		case metriccache.Failed:
			// 실패 TTL 동안은 재호출하지 않음 (백오프)
			item.unavailable = true
			item.source = SourceBackoff
			return item
		}
	}

	snap, err := o.fetch(ctx, inst.Symbol, limiter)
	if err != nil {
		item.unavailable = true
		item.source = SourceFailed

		o.logger.WithSymbol(inst.Symbol).WithError(err).Warn("Metric fetch failed")

		// 실행 자체가 취소된 경우는 실패 마커를 남기지 않음
		if ctx.Err() == nil {
			o.cache.PutFailure(inst.Symbol, err.Error())
			afterWrite()
		}
		return item
	}

	snap.Symbol = inst.Symbol
	o.cache.PutSuccess(inst.Symbol, snap)
	afterWrite()

	item.snapshot = &snap
	item.source = SourceFetched
	return item
}

// fetch calls the provider through the throttle with a per-call timeout.
// A call that outlives its timeout is abandoned and reported as unavailable.
func (o *Orchestrator) fetch(ctx context.Context, symbol string, limiter *rate.Limiter) (contracts.MetricSnapshot, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return contracts.MetricSnapshot{}, fmt.Errorf("%w: throttle: %v", contracts.ErrDataUnavailable, err)
		}
	}

	callCtx := ctx
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	type outcome struct {
		snap contracts.MetricSnapshot
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		snap, err := o.source.Fetch(callCtx, symbol)
		ch <- outcome{snap, err}
	}()

	select {
	case out := <-ch:
		if out.err != nil && !errors.Is(out.err, contracts.ErrDataUnavailable) {
			return contracts.MetricSnapshot{}, fmt.Errorf("%w: %w", contracts.ErrDataUnavailable, out.err)
		}
		return out.snap, out.err
	case <-callCtx.Done():
		return contracts.MetricSnapshot{}, fmt.Errorf("%w: %s: %v", contracts.ErrDataUnavailable, symbol, callCtx.Err())
	}
}

// dedupe normalizes identifiers and keeps the first occurrence
func dedupe(universe []contracts.Instrument) []contracts.Instrument {
	seen := make(map[string]struct{}, len(universe))
	out := make([]contracts.Instrument, 0, len(universe))

	for _, inst := range universe {
		sym := metriccache.NormalizeKey(inst.Symbol)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, contracts.Instrument{Symbol: sym, Sector: strings.TrimSpace(inst.Sector)})
	}

	return out
}

// sortResults puts passed results first by margin of safety (absent last,
// ties by symbol), then failed results in universe order
func sortResults(results []contracts.ScreeningResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Passed != b.Passed {
			return a.Passed
		}
		if !a.Passed {
			return false
		}
		switch {
		case a.MarginOfSafety == nil && b.MarginOfSafety == nil:
			return a.Symbol < b.Symbol
		case a.MarginOfSafety == nil:
			return false
		case b.MarginOfSafety == nil:
			return true
		case *a.MarginOfSafety != *b.MarginOfSafety:
			return *a.MarginOfSafety > *b.MarginOfSafety
		}
		return a.Symbol < b.Symbol
	})
}
