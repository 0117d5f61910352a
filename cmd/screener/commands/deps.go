package commands

import (
	"context"
	"fmt"

	"github.com/ddwolfer/Financial-Assistant/internal/brain"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/external/yahoo"
	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
	"github.com/ddwolfer/Financial-Assistant/internal/results"
	"github.com/ddwolfer/Financial-Assistant/internal/universe"
	"github.com/ddwolfer/Financial-Assistant/pkg/config"
	"github.com/ddwolfer/Financial-Assistant/pkg/database"
	"github.com/ddwolfer/Financial-Assistant/pkg/httputil"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
	"github.com/ddwolfer/Financial-Assistant/pkg/redis"
)

// deps holds everything a command may need, built once from config
type deps struct {
	cfg *config.Config
	log *logger.Logger

	redis *redis.Client
	db    *database.DB // nil unless RESULTS_BACKEND=postgres

	cache    *metriccache.Cache
	results  contracts.ResultsStore
	yahoo    *yahoo.Client
	index    *universe.WikipediaProvider
	registry *universe.Registry
}

// initDeps connects the configured backends and loads the metric cache
func initDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	log := logger.New(cfg)

	d := &deps{cfg: cfg, log: log}

	// 1. Redis (disabled client when REDIS_ENABLED=false)
	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	d.redis = rdb

	// 2. Metric cache
	ttls := metriccache.TTLs{Success: cfg.Cache.SuccessTTL, Failure: cfg.Cache.FailureTTL}

	var store metriccache.Store
	switch cfg.Cache.Backend {
	case "redis":
		store = metriccache.NewRedisStore(rdb, cfg.Redis.Prefix, ttls, log)
	default:
		store = metriccache.NewFileStore(cfg.Cache.File, log)
	}

	d.cache = metriccache.New(store, metriccache.Options{TTLs: ttls}, log)
	if err := d.cache.Load(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("load metric cache: %w", err)
	}

	// 3. Results store
	switch cfg.Results.Backend {
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.db = db

		pg := results.NewPostgresStore(db, log)
		if err := pg.Migrate(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("migrate results schema: %w", err)
		}
		d.results = pg
	default:
		d.results = results.NewFileStore(cfg.Results.Dir, log)
	}

	// 4. External clients (Yahoo 클라이언트는 재시도 없이 별도 인스턴스 사용)
	yahooHTTP := httputil.New(cfg, log)
	indexHTTP := httputil.New(cfg, log)
	if rdb.Enabled() {
		limiter := redis.NewRateLimiter(rdb, cfg.Redis.Prefix)
		if cfg.Yahoo.RateLimit > 0 {
			yahooLimit := redis.YahooRateLimit
			yahooLimit.Limit = cfg.Yahoo.RateLimit
			yahooLimit.Window = cfg.Yahoo.RateWindow
			yahooHTTP = yahooHTTP.WithRateLimiter(limiter, yahooLimit)
		}
		indexHTTP = indexHTTP.WithRateLimiter(limiter, redis.WikipediaRateLimit)
	}

	yahooOpts := yahoo.DefaultOptions()
	yahooOpts.BaseURL = cfg.Yahoo.BaseURL
	d.yahoo = yahoo.NewClient(yahooHTTP, yahooOpts, log)

	d.index = universe.NewWikipediaProvider(indexHTTP, cfg.DataDir, log).
		WithBaseURL(cfg.Universe.WikipediaURL)
	d.registry = universe.NewRegistry(d.index)

	return d, nil
}

// orchestrator wires the screening run from the configured fetch settings
func (d *deps) orchestrator() *brain.Orchestrator {
	return brain.NewOrchestrator(d.yahoo, d.cache, d.results, brain.Config{
		Delay:      d.cfg.Fetch.Delay,
		Timeout:    d.cfg.Fetch.Timeout,
		Workers:    d.cfg.Fetch.Workers,
		FlushEvery: d.cfg.Cache.FlushEvery,
	}, d.log)
}

// cacheLocation describes where the metric cache lives
func (d *deps) cacheLocation() string {
	if d.cfg.Cache.Backend == "redis" {
		return fmt.Sprintf("redis %s:%s (prefix %s)", d.cfg.Redis.Host, d.cfg.Redis.Port, d.cfg.Redis.Prefix)
	}
	return d.cfg.Cache.File
}

// Close releases connections
func (d *deps) Close() {
	if d.db != nil {
		d.db.Close()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.log.WithError(err).Warn("Failed to close redis")
		}
	}
}
