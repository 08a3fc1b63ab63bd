package scheduler

import (
	"context"
	"time"

	"shopware_reports/internal/reports"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	dailySpec  = "0 0 * * *"
	weeklySpec = "0 1 * * 0"

	maxAttempts      = 3
	dailyRetryDelay  = 5 * time.Minute
	weeklyRetryDelay = 10 * time.Minute
)

// Scheduler triggers the daily report every midnight and the weekly
// report on Sunday at 01:00. Each run retries a bounded number of times
// on failure; exhaustion is logged, never fatal.
type Scheduler struct {
	cron   *cron.Cron
	daily  *reports.Daily
	weekly *reports.Weekly
	logger *zap.Logger
}

func New(daily *reports.Daily, weekly *reports.Weekly, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		daily:  daily,
		weekly: weekly,
		logger: logger.Named("scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(dailySpec, func() {
		runWithRetry(ctx, s.logger, "daily report", maxAttempts, dailyRetryDelay, func() error {
			return s.daily.Generate(ctx, reports.Options{})
		})
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(weeklySpec, func() {
		runWithRetry(ctx, s.logger, "weekly report", maxAttempts, weeklyRetryDelay, func() error {
			return s.weekly.Generate(ctx, reports.Options{})
		})
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("daily", dailySpec),
		zap.String("weekly", weeklySpec),
	)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runWithRetry retries fn with a fixed delay between attempts and gives
// up after the attempt budget or when ctx is done.
func runWithRetry(ctx context.Context, logger *zap.Logger, name string, attempts int, delay time.Duration, fn func() error) {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return
		}
		logger.Warn("job attempt failed",
			zap.String("job", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			logger.Warn("job abandoned", zap.String("job", name), zap.Error(ctx.Err()))
			return
		}
	}
	logger.Error("job failed after retries",
		zap.String("job", name),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}
