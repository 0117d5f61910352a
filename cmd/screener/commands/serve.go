package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddwolfer/Financial-Assistant/internal/api"
	"github.com/ddwolfer/Financial-Assistant/internal/api/handlers"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/metrics"
	"github.com/ddwolfer/Financial-Assistant/internal/scheduler"
	"github.com/ddwolfer/Financial-Assistant/internal/scheduler/jobs"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 정기 스크리닝 스케줄러",
	Long: `Starts the read-only API and the cron-driven screening.

Endpoints:
  GET  /health                 - Health check (redis, database, yahoo breaker)
  GET  /api/screening/latest   - Latest batch (?tag=, ?passed_only=true)
  GET  /api/screening/list     - Stored batches (?tag=, ?limit=)
  GET  /api/cache              - Metric cache statistics
  GET  /api/cache/{symbol}     - Cache entry of one instrument
  GET  /ws/progress            - Live progress of the running batch
  GET  /metrics                - Prometheus metrics

Jobs:
  screening_<universe>   SCHEDULE_CRON (default weekdays 06:30)
  cache_maintenance      hourly prune + flush

Example:
  go run ./cmd/screener serve
  go run ./cmd/screener serve --port 9000 --run-now`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	servePort       string
	serveNoSchedule bool
	serveRunNow     bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default PORT)")
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "serve the API only")
	serveCmd.Flags().BoolVar(&serveRunNow, "run-now", false, "run the screening job once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	mode, err := contracts.ParseMode(cfg.Schedule.Mode)
	if err != nil {
		return fmt.Errorf("SCHEDULE_MODE: %w", err)
	}
	thresholds, err := screenconfig.Load(cfg.ThresholdsFile)
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	// 2. Dependencies
	d, err := initDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	log := d.log
	hub := handlers.NewProgressHub(log)
	recorder := metrics.New(d.cache)

	// 3. Handlers
	health := handlers.NewHealthHandler(api.ServiceName).
		Register("yahoo", func(ctx context.Context) error {
			if state := d.yahoo.BreakerState(); state == "open" {
				return fmt.Errorf("circuit %s", state)
			}
			return nil
		})
	if d.redis.Enabled() {
		health.Register("redis", func(ctx context.Context) error {
			return d.redis.Redis().Ping(ctx).Err()
		})
	}
	if d.db != nil {
		health.Register("database", func(ctx context.Context) error {
			_, err := d.db.HealthCheck(ctx)
			return err
		})
	}

	router := api.NewRouter(api.Handlers{
		Health:    health,
		Screening: handlers.NewScreeningHandler(d.results, log),
		Cache:     handlers.NewCacheHandler(d.cache),
		Progress:  hub,
		Metrics:   recorder.Handler(),
	}, log)

	// 4. Scheduler
	sched := scheduler.New(log)
	screening := jobs.NewScreeningJob(recorder.Instrument(d.orchestrator()), d.registry, jobs.ScreeningConfig{
		Schedule:   cfg.Schedule.Cron,
		Universe:   cfg.Schedule.Universe,
		Mode:       mode,
		Thresholds: thresholds,
	}, log).WithProgress(hub.Publish)

	if !serveNoSchedule {
		if err := sched.AddJob(screening); err != nil {
			return fmt.Errorf("add screening job: %w", err)
		}
		if err := sched.AddJob(jobs.NewCacheMaintenanceJob(d.cache, log)); err != nil {
			return fmt.Errorf("add cache maintenance job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 5. Server
	server := api.New(cfg, log, router)
	if err := server.Listen(); err != nil {
		return err
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	printSuccess(out, fmt.Sprintf("Server running on %s", server.Addr()))
	if !serveNoSchedule {
		printKeyValue(out, "Screening", fmt.Sprintf("%s %s (next %s)",
			cfg.Schedule.Universe, mode, formatTime(sched.NextRun(screening.Name()))))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if serveRunNow {
		go func() {
			if serveNoSchedule {
				if err := screening.Run(ctx); err != nil {
					log.WithError(err).Error("Startup screening failed")
				}
				return
			}
			if _, err := sched.RunJob(ctx, screening.Name()); err != nil {
				log.WithError(err).Error("Startup screening failed")
			}
		}()
	}

	// Wait for interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 남은 캐시 변경분 저장
	if err := d.cache.Flush(shutdownCtx); err != nil {
		log.WithError(err).Warn("Final cache flush failed")
	}

	log.Info("Server stopped")
	return nil
}
