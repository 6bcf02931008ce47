// Package jobs runs the background work of the API on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tekpay/internal/services/settlement"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper settles purchases left pending by the biller.
type Sweeper interface {
	SweepPending(ctx context.Context, olderThan time.Duration, limit int) (settlement.SweepResult, error)
}

type Config struct {
	Schedule string
	MinAge   time.Duration
	Batch    int
	Timezone string
}

// Scheduler runs the pending purchase sweep.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	cfg     Config
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler in cfg.Timezone, falling back to WAT.
// Overlapping runs are skipped.
func NewScheduler(sweeper Sweeper, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using WAT", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.FixedZone("WAT", 3600)
	}

	cl := cronLogger{logger.Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start runs the jobs until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("sweep_schedule", s.cfg.Schedule))
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()
	s.runSweep(ctx)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	start := time.Now()
	result, err := s.sweeper.SweepPending(ctx, s.cfg.MinAge, s.cfg.Batch)
	if err != nil {
		s.logger.Error("pending sweep failed", zap.Error(err))
		return
	}
	if result.Checked == 0 {
		return
	}
	s.logger.Info("pending sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("settled", result.Settled),
		zap.Int("errors", result.Errors),
		zap.Duration("took", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
