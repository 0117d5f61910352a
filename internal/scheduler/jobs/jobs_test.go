package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddwolfer/Financial-Assistant/internal/brain"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

type stubUniverse struct {
	instruments []contracts.Instrument
	err         error
	asked       string
}

func (u *stubUniverse) List(ctx context.Context, name string) ([]contracts.Instrument, error) {
	u.asked = name
	return u.instruments, u.err
}

type stubScreener struct {
	batch *contracts.ScreeningBatch
	err   error
	got   []contracts.Instrument
	opts  brain.RunOptions
}

func (s *stubScreener) Run(ctx context.Context, universe []contracts.Instrument, th screenconfig.Thresholds, opts brain.RunOptions) (*contracts.ScreeningBatch, error) {
	s.got = universe
	s.opts = opts
	return s.batch, s.err
}

func TestScreeningJob_Run(t *testing.T) {
	universe := &stubUniverse{instruments: []contracts.Instrument{{Symbol: "AAPL"}}}
	screener := &stubScreener{batch: &contracts.ScreeningBatch{RunID: "r1", TotalScreened: 1}}

	job := NewScreeningJob(screener, universe, ScreeningConfig{
		Universe:   "sp500",
		Mode:       contracts.ModeDual,
		Tag:        "nightly",
		Thresholds: screenconfig.Default(),
	}, nil)

	assert.Equal(t, "screening_sp500", job.Name())
	assert.Equal(t, "0 30 6 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "sp500", universe.asked)
	assert.Equal(t, universe.instruments, screener.got)
	assert.Equal(t, contracts.ModeDual, screener.opts.Mode)
	assert.Equal(t, "nightly", screener.opts.Tag)
	assert.Equal(t, "sp500", screener.opts.Universe)
}

func TestScreeningJob_Errors(t *testing.T) {
	t.Run("universe", func(t *testing.T) {
		job := NewScreeningJob(&stubScreener{}, &stubUniverse{err: errors.New("offline")}, ScreeningConfig{Universe: "sp500"}, nil)
		assert.ErrorContains(t, job.Run(context.Background()), "offline")
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		screener := &stubScreener{err: contracts.ErrInvalidThreshold}
		job := NewScreeningJob(screener, &stubUniverse{}, ScreeningConfig{Universe: "sp500"}, nil)
		assert.ErrorIs(t, job.Run(context.Background()), contracts.ErrInvalidThreshold)
	})

	t.Run("persist", func(t *testing.T) {
		screener := &stubScreener{batch: &contracts.ScreeningBatch{RunID: "r2"}, err: errors.New("disk full")}
		job := NewScreeningJob(screener, &stubUniverse{}, ScreeningConfig{Universe: "sp500", Schedule: "@daily"}, nil)
		err := job.Run(context.Background())
		assert.ErrorContains(t, err, "r2")
		assert.ErrorContains(t, err, "disk full")
		assert.Equal(t, "@daily", job.Schedule())
	})
}

func TestCacheMaintenanceJob(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := metriccache.NewFileStore(filepath.Join(t.TempDir(), "metrics_cache.json"), nil)
	cache := metriccache.New(store, metriccache.Options{Clock: clock}, nil)

	cache.PutFailure("OLD", "timeout")
	cache.PutSuccess("KEEP", contracts.MetricSnapshot{Symbol: "KEEP"})
	now = now.Add(2 * time.Hour)

	job := NewCacheMaintenanceJob(cache, nil)
	assert.Equal(t, "cache_maintenance", job.Name())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"KEEP"}, cache.Symbols())
	assert.Equal(t, 0, cache.Dirty())

	reloaded := metriccache.New(store, metriccache.Options{Clock: clock}, nil)
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, []string{"KEEP"}, reloaded.Symbols())
}
