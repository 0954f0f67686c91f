package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/harvest"
)

// DailyRefreshSpec fires the refresh harvest at 06:00 UTC, after the
// provider resets its daily call counters.
const DailyRefreshSpec = "0 0 6 * * *"

// refreshPriority limits the daily refresh to priority-1 corridors so
// the harvest budget is spent on the lanes that move signals.
const refreshPriority = 1

const defaultRefreshTimeout = 30 * time.Minute

// Harvester runs catalog harvest jobs up to a priority tier.
type Harvester interface {
	RunAll(ctx context.Context, maxPriority int) []harvest.Summary
}

// RefreshJob re-harvests the priority-1 corridors to keep the record
// store current between restarts.
type RefreshJob struct {
	engine  Harvester
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshJob creates the daily refresh job
func NewRefreshJob(engine Harvester, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		engine:  engine,
		timeout: defaultRefreshTimeout,
		log:     log.With().Str("job", "daily_refresh").Logger(),
	}
}

// Name implements Job
func (j *RefreshJob) Name() string { return "daily_refresh" }

// Run executes the refresh harvest and reports per-corridor outcomes.
// Skipped jobs are expected when the call budget is already spent and
// do not count as failures.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	results := j.engine.RunAll(ctx, refreshPriority)

	var failed int
	for _, r := range results {
		switch r.Status {
		case harvest.StatusFailed:
			failed++
			j.log.Warn().
				Str("harvest_job", r.JobName).
				Str("error", r.Error).
				Msg("Refresh harvest failed")
		case harvest.StatusSkipped:
			j.log.Info().
				Str("harvest_job", r.JobName).
				Msg("Refresh harvest skipped")
		default:
			j.log.Info().
				Str("harvest_job", r.JobName).
				Int("raw", r.RawCount).
				Int("normalized", r.NormalizedCount).
				Msg("Refresh harvest completed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("daily refresh: %d of %d jobs failed", failed, len(results))
	}
	return nil
}
