package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Name       string
	Interval   time.Duration
	Jitter     time.Duration
	RunAtStart bool
	Clock      clock.Clock
}

// Scheduler runs a job every Interval plus a random delay of up to Jitter.
type Scheduler struct {
	cfg    SchedulerConfig
	job    Job
	logger *zap.Logger
	jitter func(max time.Duration) time.Duration
}

func NewScheduler(cfg SchedulerConfig, job Job, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: logger.With(zap.String("job", cfg.Name)),
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("jitter", s.cfg.Jitter),
		zap.Bool("run_at_start", s.cfg.RunAtStart),
	)
	if s.cfg.RunAtStart {
		s.runOnce(ctx)
	}

	for {
		wait := s.cfg.Interval + s.jitter(s.cfg.Jitter)
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-s.cfg.Clock.After(wait):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := s.cfg.Clock.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("Scheduled job failed", zap.Error(err))
		return
	}
	s.logger.Debug("Scheduled job finished", zap.Duration("duration", s.cfg.Clock.Now().Sub(start)))
}
