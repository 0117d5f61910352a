package jobs

import (
	"context"
	"fmt"

	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// CacheMaintenanceJob prunes expired metric cache entries and flushes
type CacheMaintenanceJob struct {
	cache  *metriccache.Cache
	logger *logger.Logger
}

// NewCacheMaintenanceJob creates a new cache maintenance job
func NewCacheMaintenanceJob(cache *metriccache.Cache, log *logger.Logger) *CacheMaintenanceJob {
	if log == nil {
		log = logger.Nop()
	}
	return &CacheMaintenanceJob{
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheMaintenanceJob) Name() string {
	return "cache_maintenance"
}

// Schedule returns the cron schedule (hourly, matching the failure TTL)
func (j *CacheMaintenanceJob) Schedule() string {
	return "0 0 * * * *"
}

// Run executes the cache maintenance
func (j *CacheMaintenanceJob) Run(ctx context.Context) error {
	removed := j.cache.Prune()

	if err := j.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush metric cache: %w", err)
	}

	stats := j.cache.Stats()
	j.logger.WithFields(map[string]interface{}{
		"removed":       removed,
		"total":         stats.Total,
		"live_hits":     stats.LiveHits,
		"live_failures": stats.LiveFailures,
	}).Info("Cache maintenance completed")

	return nil
}
