package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddwolfer/Financial-Assistant/internal/brain"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

// stubScreener reports two resolved instruments and returns batch, err
type stubScreener struct {
	batch *contracts.ScreeningBatch
	err   error
}

func (s stubScreener) Run(ctx context.Context, universe []contracts.Instrument, thresholds screenconfig.Thresholds, opts brain.RunOptions) (*contracts.ScreeningBatch, error) {
	if opts.Progress != nil {
		opts.Progress(brain.Progress{Done: 1, Total: 2, Symbol: "AAA", Source: brain.SourceFetched})
		opts.Progress(brain.Progress{Done: 2, Total: 2, Symbol: "BBB", Source: brain.SourceCache})
	}
	return s.batch, s.err
}

func TestInstrument_RecordsRunAndProgress(t *testing.T) {
	r := New(nil)

	var forwarded []string
	screener := r.Instrument(stubScreener{batch: &contracts.ScreeningBatch{
		Mode:          contracts.ModeDual,
		Tag:           "nightly",
		TotalScreened: 2,
		TotalPassed:   1,
	}})

	_, err := screener.Run(context.Background(), nil, screenconfig.Default(), brain.RunOptions{
		Progress: func(p brain.Progress) { forwarded = append(forwarded, p.Symbol) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, forwarded, "caller progress still receives every update")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolved.WithLabelValues("fetched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolved.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("dual", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.screened.WithLabelValues("nightly")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.passed.WithLabelValues("nightly")))
}

func TestObserveRun_Status(t *testing.T) {
	r := New(nil)

	r.ObserveRun(contracts.ModeSector, nil, time.Second, errors.New("bad thresholds"))
	r.ObserveRun(contracts.ModeSector, &contracts.ScreeningBatch{Tag: "sector"}, time.Second, errors.New("persist batch: disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("sector", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("sector", "persist_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.runs))
}

func TestCacheCollector(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	cache := metriccache.New(
		metriccache.NewFileStore(filepath.Join(t.TempDir(), "cache.json"), nil),
		metriccache.Options{TTLs: metriccache.DefaultTTLs(), Clock: func() time.Time { return now }},
		nil,
	)
	cache.PutSuccess("AAA", contracts.MetricSnapshot{Symbol: "AAA"})
	cache.PutSuccess("BBB", contracts.MetricSnapshot{Symbol: "BBB"})
	cache.PutFailure("CCC", "timeout")

	r := New(cache)

	expected := `
# HELP screener_cache_entries Metric cache entries by state
# TYPE screener_cache_entries gauge
screener_cache_entries{state="expired"} 0
screener_cache_entries{state="failed"} 1
screener_cache_entries{state="hit"} 2
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "screener_cache_entries"))
}

func TestHandler(t *testing.T) {
	r := New(nil)
	r.ObserveProgress(brain.Progress{Source: brain.SourceBackoff})

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `screener_instruments_resolved_total{source="backoff"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
