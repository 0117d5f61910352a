package metriccache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// State is the result of a cache lookup
type State int

const (
	Absent State = iota // no entry, or entry expired
	Hit                 // live success entry
	Failed              // live failure marker
)

func (s State) String() string {
	switch s {
	case Hit:
		return "hit"
	case Failed:
		return "failed"
	default:
		return "absent"
	}
}

// Lookup is what Get returns
type Lookup struct {
	State     State
	Snapshot  contracts.MetricSnapshot
	Reason    string
	FetchedAt time.Time
}

// Store persists cache records
type Store interface {
	// Load returns every decodable record; corrupt entries are dropped
	Load(ctx context.Context) (map[string]Record, error)
	// Save persists the records; changed lists the keys written since the last save
	Save(ctx context.Context, all map[string]Record, changed []string) error
	// Clear removes every persisted record
	Clear(ctx context.Context) error
}

// Options configures a Cache
type Options struct {
	TTLs  TTLs
	Clock func() time.Time
}

// Stats summarizes cache contents at the current clock
type Stats struct {
	Total        int `json:"total"`
	LiveHits     int `json:"live_hits"`
	LiveFailures int `json:"live_failures"`
	Expired      int `json:"expired"`
	Dirty        int `json:"dirty"`
}

// Cache is a TTL-bounded, failure-aware metric cache.
// Expired entries read as Absent and are overwritten on the next put.
// ⭐ SSOT: 종목별 지표 캐시는 여기서만 관리
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Record
	dirty   map[string]struct{}

	flushMu sync.Mutex
	store   Store
	ttls    TTLs
	now     func() time.Time
	logger  *logger.Logger
}

// New creates an empty cache backed by store
func New(store Store, opts Options, log *logger.Logger) *Cache {
	if opts.TTLs.Success <= 0 || opts.TTLs.Failure <= 0 {
		opts.TTLs = DefaultTTLs()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Cache{
		entries: make(map[string]Record),
		dirty:   make(map[string]struct{}),
		store:   store,
		ttls:    opts.TTLs,
		now:     opts.Clock,
		logger:  log.WithComponent("metriccache"),
	}
}

// TTLs returns the cache's TTL policy
func (c *Cache) TTLs() TTLs {
	return c.ttls
}

// Load replaces in-memory entries with the persisted ones
func (c *Cache) Load(ctx context.Context) error {
	records, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load metric cache: %w", err)
	}

	entries := make(map[string]Record, len(records))
	for k, r := range records {
		entries[NormalizeKey(k)] = r
	}

	c.mu.Lock()
	c.entries = entries
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	c.logger.WithField("entries", len(entries)).Debug("Metric cache loaded")
	return nil
}

// Get returns the live entry for symbol, or Absent
func (c *Cache) Get(symbol string) Lookup {
	key := NormalizeKey(symbol)

	c.mu.RLock()
	r, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !r.Live(c.now(), c.ttls) {
		return Lookup{State: Absent}
	}

	switch r.Kind {
	case KindSuccess:
		return Lookup{State: Hit, Snapshot: r.Payload.Clone(), FetchedAt: r.FetchedAt}
	case KindFailure:
		return Lookup{State: Failed, Reason: r.Error, FetchedAt: r.FetchedAt}
	}
	return Lookup{State: Absent}
}

// Peek returns the stored record regardless of liveness
func (c *Cache) Peek(symbol string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.entries[NormalizeKey(symbol)]
	if ok && r.Payload != nil {
		p := r.Payload.Clone()
		r.Payload = &p
	}
	return r, ok
}

// PutSuccess stores a snapshot stamped with the current time
func (c *Cache) PutSuccess(symbol string, snapshot contracts.MetricSnapshot) {
	p := snapshot.Clone()
	c.put(symbol, Record{Kind: KindSuccess, FetchedAt: c.now(), Payload: &p})
}

// PutFailure stores a failure marker stamped with the current time
func (c *Cache) PutFailure(symbol string, reason string) {
	c.put(symbol, Record{Kind: KindFailure, FetchedAt: c.now(), Error: reason})
}

func (c *Cache) put(symbol string, r Record) {
	key := NormalizeKey(symbol)

	c.mu.Lock()
	c.entries[key] = r
	c.dirty[key] = struct{}{}
	c.mu.Unlock()
}

// Dirty returns the number of entries written since the last flush
func (c *Cache) Dirty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dirty)
}

// Flush persists entries written since the last flush
func (c *Cache) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.RLock()
	if len(c.dirty) == 0 {
		c.mu.RUnlock()
		return nil
	}
	all := make(map[string]Record, len(c.entries))
	for k, r := range c.entries {
		all[k] = r
	}
	changed := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		changed = append(changed, k)
	}
	c.mu.RUnlock()

	sort.Strings(changed)
	if err := c.store.Save(ctx, all, changed); err != nil {
		return fmt.Errorf("flush metric cache: %w", err)
	}

	c.mu.Lock()
	for _, k := range changed {
		// 저장 중에 다시 쓰인 키는 dirty 유지
		if c.entries[k] == all[k] {
			delete(c.dirty, k)
		}
	}
	c.mu.Unlock()

	c.logger.WithField("changed", len(changed)).Debug("Metric cache flushed")
	return nil
}

// Clear drops every entry in memory and in the store
func (c *Cache) Clear(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	c.entries = make(map[string]Record)
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear metric cache: %w", err)
	}
	return nil
}

// Prune drops expired entries from memory and returns how many were
// removed. The next Flush rewrites the store without them.
func (c *Cache) Prune() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, r := range c.entries {
		if r.Live(now, c.ttls) {
			continue
		}
		delete(c.entries, k)
		c.dirty[k] = struct{}{}
		removed++
	}
	return removed
}

// Stats counts entries by liveness at the current clock
func (c *Cache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries), Dirty: len(c.dirty)}
	for _, r := range c.entries {
		switch {
		case !r.Live(now, c.ttls):
			s.Expired++
		case r.Kind == KindSuccess:
			s.LiveHits++
		default:
			s.LiveFailures++
		}
	}
	return s
}

// Symbols returns every cached identifier, sorted
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	c.mu.RUnlock()

	sort.Strings(out)
	return out
}
