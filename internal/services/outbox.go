package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/internal/infrastructure/buffer"
	"github.com/fastygo/crm/internal/infrastructure/push"
	"github.com/fastygo/crm/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// OutboxConfig controls how the outbox is drained.
type OutboxConfig struct {
	Schedule   string
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
	Timeout    time.Duration
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Delivered    int `json:"delivered"`
	Retried      int `json:"retried"`
	DeadLettered int `json:"dead_lettered"`
	Expired      int `json:"expired"`
}

// Outbox delivers notifications and change events, keeping whatever fails in
// bbolt until a later drain succeeds. Items that run out of retries are parked
// as dead letters until replayed.
type Outbox struct {
	store   *buffer.Store
	monitor ConnectionHealth
	devices repository.DeviceTokenRepository
	sender  push.Sender
	feed    repository.ChangeFeed
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     OutboxConfig
}

func NewOutbox(
	store *buffer.Store,
	monitor ConnectionHealth,
	devices repository.DeviceTokenRepository,
	sender push.Sender,
	feed repository.ChangeFeed,
	logger *zap.Logger,
	cfg OutboxConfig,
) (*Outbox, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30s"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Outbox{
		store:   store,
		monitor: monitor,
		devices: devices,
		sender:  sender,
		feed:    feed,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithParser(scheduleParser)),
	}

	if _, err := o.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if _, err := o.Drain(ctx); err != nil {
			o.logger.Error("outbox drain failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("outbox schedule %q: %w", cfg.Schedule, err)
	}

	return o, nil
}

// Start launches the drain scheduler.
func (o *Outbox) Start() {
	if o == nil || o.cron == nil {
		return
	}
	o.cron.Start()
	o.logger.Info("outbox processor started", zap.String("schedule", o.cfg.Schedule))
}

// Stop waits for a running drain to finish or ctx to expire.
func (o *Outbox) Stop(ctx context.Context) error {
	if o == nil || o.cron == nil {
		return nil
	}
	stopCtx := o.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	o.logger.Info("outbox processor stopped")
	return nil
}

// Submit attempts immediate delivery and falls back to persisting the item.
func (o *Outbox) Submit(ctx context.Context, item buffer.Item) error {
	if o == nil {
		return errors.New("outbox not configured")
	}

	if o.monitor == nil || o.monitor.IsOnline() {
		err := o.deliver(ctx, item)
		if err == nil {
			return nil
		}
		o.logger.Warn("immediate delivery failed, buffering",
			zap.String("entity", item.Entity),
			zap.String("user_id", item.UserID),
			zap.Error(err))
		item.LastError = err.Error()
	}
	if o.store == nil {
		return errors.New("outbox store not configured")
	}
	return o.store.Enqueue(item)
}

// Drain retries buffered items synchronously.
func (o *Outbox) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	if o == nil || o.store == nil {
		return res, nil
	}
	if o.cfg.Retention > 0 {
		expired, err := o.store.Expire(time.Now().UTC().Add(-o.cfg.Retention))
		if err != nil {
			o.logger.Warn("outbox expiry failed", zap.Error(err))
		}
		res.Expired = expired
	}
	if o.monitor != nil && !o.monitor.IsOnline() {
		o.logger.Debug("skipping outbox drain (offline)")
		return res, nil
	}

	items, err := o.store.Peek(o.cfg.BatchSize)
	if err != nil {
		return res, err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		deliverErr := o.deliver(ctx, item)
		if deliverErr == nil {
			if err := o.store.Ack(item); err != nil {
				o.logger.Warn("failed to ack outbox item", zap.String("item_id", item.ID), zap.Error(err))
			}
			res.Delivered++
			continue
		}

		outcome, err := o.store.Fail(item, deliverErr, o.cfg.MaxRetries, time.Now())
		if err != nil {
			o.logger.Error("failed to record outbox failure", zap.String("item_id", item.ID), zap.Error(err))
			continue
		}
		if outcome == buffer.OutcomeDeadLettered {
			o.logger.Warn("outbox item dead-lettered",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Int("retries", item.Retries+1),
				zap.Error(deliverErr))
			res.DeadLettered++
			continue
		}
		res.Retried++
	}

	if len(items) > 0 {
		o.logger.Info("outbox drained",
			zap.Int("delivered", res.Delivered),
			zap.Int("retried", res.Retried),
			zap.Int("dead_lettered", res.DeadLettered))
	}
	return res, nil
}

// ReplayResult reports how many dead letters went back to the pending queue.
type ReplayResult struct {
	Replayed int `json:"replayed"`
}

// Replay requeues every dead letter with a fresh retry budget.
func (o *Outbox) Replay(ctx context.Context) (ReplayResult, error) {
	if o == nil || o.store == nil {
		return ReplayResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return ReplayResult{}, err
	}
	n, err := o.store.Replay(time.Now())
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay dead letters: %w", err)
	}
	if n > 0 {
		o.logger.Info("outbox dead letters replayed", zap.Int("count", n))
	}
	return ReplayResult{Replayed: n}, nil
}

// DeadLetters lists parked items for inspection.
func (o *Outbox) DeadLetters(limit int) ([]buffer.Item, error) {
	if o == nil || o.store == nil {
		return nil, nil
	}
	return o.store.DeadLetters(limit)
}

// Size returns the number of buffered items.
func (o *Outbox) Size() (int, error) {
	if o == nil || o.store == nil {
		return 0, nil
	}
	return o.store.Size()
}

func (o *Outbox) deliver(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityNotification:
		var intent domain.NotificationIntent
		if err := json.Unmarshal(item.Data, &intent); err != nil {
			return err
		}
		return o.push(ctx, intent)

	case buffer.EntityChange:
		var ev domain.ChangeEvent
		if err := json.Unmarshal(item.Data, &ev); err != nil {
			return err
		}
		if o.feed == nil {
			return nil
		}
		return o.feed.Publish(ctx, ev)

	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}

func (o *Outbox) push(ctx context.Context, intent domain.NotificationIntent) error {
	if o.sender == nil || o.devices == nil {
		return nil
	}
	devices, err := o.devices.ListByUser(ctx, intent.TargetUserID)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}
	if len(tokens) == 0 {
		o.logger.Debug("no devices for notification",
			zap.String("target_user_id", intent.TargetUserID),
			zap.String("type", string(intent.Type)))
		return nil
	}

	res, err := o.sender.Send(ctx, tokens, intent)
	for _, stale := range res.Stale {
		if derr := o.devices.Delete(ctx, intent.TargetUserID, stale); derr != nil {
			o.logger.Warn("failed to prune stale device token", zap.Error(derr))
		}
	}
	if err != nil {
		return err
	}
	o.logger.Debug("notification delivered",
		zap.String("type", string(intent.Type)),
		zap.String("target_user_id", intent.TargetUserID),
		zap.Int("sent", res.Sent))
	return nil
}

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
