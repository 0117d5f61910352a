package jobs

import (
	"context"
	"fmt"

	"github.com/ddwolfer/Financial-Assistant/internal/brain"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// Screener runs one screening batch
type Screener interface {
	Run(ctx context.Context, universe []contracts.Instrument, thresholds screenconfig.Thresholds, opts brain.RunOptions) (*contracts.ScreeningBatch, error)
}

// ScreeningConfig selects what the scheduled run screens
type ScreeningConfig struct {
	Schedule   string
	Universe   string
	Mode       contracts.Mode
	Tag        string
	Thresholds screenconfig.Thresholds
}

// ScreeningJob runs the dual-track screening on a schedule
// ⭐ SSOT: 정기 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	screener Screener
	universe contracts.UniverseProvider
	config   ScreeningConfig
	progress brain.ProgressFunc
	logger   *logger.Logger
}

// NewScreeningJob creates a new screening job
func NewScreeningJob(screener Screener, universe contracts.UniverseProvider, cfg ScreeningConfig, log *logger.Logger) *ScreeningJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ScreeningJob{
		screener: screener,
		universe: universe,
		config:   cfg,
		logger:   log,
	}
}

// WithProgress forwards per-instrument progress, e.g. to the websocket hub
func (j *ScreeningJob) WithProgress(fn brain.ProgressFunc) *ScreeningJob {
	j.progress = fn
	return j
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "screening_" + j.config.Universe
}

// Schedule returns the cron schedule (weekdays 06:30 by default, after the US close)
func (j *ScreeningJob) Schedule() string {
	if j.config.Schedule == "" {
		return "0 30 6 * * 1-5"
	}
	return j.config.Schedule
}

// Run lists the universe and screens it
func (j *ScreeningJob) Run(ctx context.Context) error {
	j.logger.WithFields(map[string]interface{}{
		"universe": j.config.Universe,
		"mode":     j.config.Mode,
	}).Info("Starting scheduled screening")

	instruments, err := j.universe.List(ctx, j.config.Universe)
	if err != nil {
		return fmt.Errorf("list universe %s: %w", j.config.Universe, err)
	}

	batch, err := j.screener.Run(ctx, instruments, j.config.Thresholds, brain.RunOptions{
		Mode:     j.config.Mode,
		Tag:      j.config.Tag,
		Universe: j.config.Universe,
		Progress: j.progress,
	})
	if batch == nil {
		return fmt.Errorf("screening: %w", err)
	}
	if err != nil {
		// 배치는 완료됐지만 저장/flush 실패
		return fmt.Errorf("screening run %s completed with errors: %w", batch.RunID, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   batch.RunID,
		"screened": batch.TotalScreened,
		"passed":   batch.TotalPassed,
	}).Info("Scheduled screening completed")

	return nil
}
