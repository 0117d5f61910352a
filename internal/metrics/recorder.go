package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ddwolfer/Financial-Assistant/internal/brain"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

const namespace = "screener"

// Screener runs one screening batch
type Screener interface {
	Run(ctx context.Context, universe []contracts.Instrument, thresholds screenconfig.Thresholds, opts brain.RunOptions) (*contracts.ScreeningBatch, error)
}

// Recorder exposes screening and cache metrics on its own registry
// ⭐ SSOT: Prometheus 지표 정의는 여기서만
type Recorder struct {
	registry *prometheus.Registry

	resolved *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	screened *prometheus.GaugeVec
	passed   *prometheus.GaugeVec
}

// New creates a recorder. cache may be nil; when set its entry counts are
// collected on every scrape.
func New(cache *metriccache.Cache) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		resolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instruments_resolved_total",
				Help:      "Instruments resolved by source (cache, fetched, failed, backoff)",
			},
			[]string{"source"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Screening runs by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of one screening run",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
		screened: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_screened",
				Help:      "Instruments screened by the last run per tag",
			},
			[]string{"tag"},
		),
		passed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_passed",
				Help:      "Instruments passed by the last run per tag",
			},
			[]string{"tag"},
		),
	}

	reg.MustRegister(collectors.NewGoCollector())
	if cache != nil {
		reg.MustRegister(newCacheCollector(cache))
	}

	return r
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveProgress counts one resolved instrument. Usable as a brain.ProgressFunc.
func (r *Recorder) ObserveProgress(p brain.Progress) {
	r.resolved.WithLabelValues(string(p.Source)).Inc()
}

// ObserveRun records the outcome of one run. batch may be nil on a fatal error.
func (r *Recorder) ObserveRun(mode contracts.Mode, batch *contracts.ScreeningBatch, elapsed time.Duration, err error) {
	status := "ok"
	switch {
	case batch == nil:
		status = "error"
	case err != nil:
		status = "persist_error"
	}

	r.runs.WithLabelValues(string(mode), status).Inc()
	r.duration.Observe(elapsed.Seconds())

	if batch != nil {
		r.screened.WithLabelValues(batch.Tag).Set(float64(batch.TotalScreened))
		r.passed.WithLabelValues(batch.Tag).Set(float64(batch.TotalPassed))
	}
}

// Instrument wraps a screener so every run and resolved instrument is recorded
func (r *Recorder) Instrument(next Screener) Screener {
	return &instrumented{next: next, recorder: r}
}

type instrumented struct {
	next     Screener
	recorder *Recorder
}

func (s *instrumented) Run(
	ctx context.Context,
	universe []contracts.Instrument,
	thresholds screenconfig.Thresholds,
	opts brain.RunOptions,
) (*contracts.ScreeningBatch, error) {
	opts.Progress = brain.ChainProgress(opts.Progress, s.recorder.ObserveProgress)

	start := time.Now()
	batch, err := s.next.Run(ctx, universe, thresholds, opts)

	mode := opts.Mode
	if batch != nil {
		mode = batch.Mode
	}
	s.recorder.ObserveRun(mode, batch, time.Since(start), err)

	return batch, err
}
