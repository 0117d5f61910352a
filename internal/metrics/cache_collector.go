package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
)

// cacheCollector reads cache statistics at scrape time
type cacheCollector struct {
	cache   *metriccache.Cache
	entries *prometheus.Desc
	dirty   *prometheus.Desc
}

func newCacheCollector(cache *metriccache.Cache) *cacheCollector {
	return &cacheCollector{
		cache: cache,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Metric cache entries by state",
			[]string{"state"}, nil,
		),
		dirty: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "dirty_entries"),
			"Metric cache entries not yet flushed",
			nil, nil,
		),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.dirty
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.cache.Stats()

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.LiveHits), "hit")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.LiveFailures), "failed")
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Expired), "expired")
	ch <- prometheus.MustNewConstMetric(c.dirty, prometheus.GaugeValue, float64(s.Dirty))
}
