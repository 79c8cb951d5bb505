package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReminderSweeper is implemented by the task use case.
type ReminderSweeper interface {
	SweepReminders(ctx context.Context, batch int) (int, error)
}

type ReminderConfig struct {
	Schedule  string
	BatchSize int
	Timeout   time.Duration
}

// ReminderScheduler runs the task reminder sweep on a cron schedule. Overlapping
// runs are skipped.
type ReminderScheduler struct {
	sweeper ReminderSweeper
	cfg     ReminderConfig
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
}

func NewReminderScheduler(sweeper ReminderSweeper, cfg ReminderConfig, logger *zap.Logger) (*ReminderScheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ReminderScheduler{
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
		cron:    cron.New(cron.WithParser(scheduleParser)),
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("reminder schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

func (s *ReminderScheduler) Start() {
	s.cron.Start()
	s.logger.Info("reminder scheduler started", zap.String("schedule", s.cfg.Schedule))
}

func (s *ReminderScheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("reminder scheduler stopped")
	return nil
}

// RunOnce sweeps due reminders immediately.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	if !s.mu.TryLock() {
		s.logger.Debug("reminder sweep already running")
		return 0, nil
	}
	defer s.mu.Unlock()
	return s.sweeper.SweepReminders(ctx, s.cfg.BatchSize)
}

func (s *ReminderScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err))
	}
}
