// Package scheduler runs periodic recurring-expense materialization.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Matt-Gary/Accounting-app/internal/billing"
	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Materializer is the part of the materializer the scheduler drives.
type Materializer interface {
	MaterializeAll(ctx context.Context, p billing.Period) ([]domain.MaterializeResult, error)
}

// Scheduler materializes the current calendar month for every user on a
// cron schedule.
type Scheduler struct {
	cron         *cron.Cron
	materializer Materializer
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// New parses schedule (standard 5-field cron syntax or descriptors such as
// "@daily") and registers the job. The scheduler is not started.
func New(schedule string, m Materializer, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		materializer: m,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid materialize schedule %q: %w", schedule, err)
	}
	return s, nil
}

// WithClock replaces the clock. Intended for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("materialization scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for a running one to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with a run in progress")
	}
}

// RunOnce materializes the current month immediately.
func (s *Scheduler) RunOnce(ctx context.Context) ([]domain.MaterializeResult, error) {
	p := billing.PeriodOf(s.now().UTC())
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := s.materializer.MaterializeAll(ctx, p)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, r := range results {
		created += len(r.Created)
	}
	s.logger.Info("scheduled materialization finished",
		zap.String("period", p.Key()),
		zap.Int("users", len(results)),
		zap.Int("created", created),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

func (s *Scheduler) run() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		s.logger.Error("scheduled materialization failed", zap.Error(err))
	}
}
