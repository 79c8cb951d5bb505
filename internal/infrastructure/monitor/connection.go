package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// Backlog reports the outbox queue depths.
type Backlog interface {
	Size() (int, error)
	DeadSize() (int, error)
}

// Monitor periodically probes Postgres, Redis and the outbox.
type Monitor struct {
	postgres Probe
	redis    Probe
	outbox   Backlog

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(postgres, redis Probe, outbox Backlog, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		postgres: postgres,
		redis:    redis,
		outbox:   outbox,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

// PostgresProbe pings the pool.
func PostgresProbe(pool *pgxpool.Pool) Probe {
	if pool == nil {
		return nil
	}
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

// RedisProbe pings the client.
func RedisProbe(client *redislib.Client) Probe {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

func (m *Monitor) Start() {
	go m.loop()
}

// Stop ends the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		<-m.doneCh
	})
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs all probes once and stores the result.
func (m *Monitor) Refresh() Status {
	status := Status{
		PostgreSQL: m.check("postgres", m.postgres, 3*time.Second),
		Redis:      m.check("redis", m.redis, 2*time.Second),
		LastCheck:  time.Now().UTC(),
	}
	status.Outbox, status.OutboxPending, status.OutboxDead = m.checkOutbox()

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && prev.Healthy() != status.Healthy() {
		m.logger.Warn("connection state changed",
			zap.Bool("postgresql", status.PostgreSQL),
			zap.Bool("redis", status.Redis))
	}
	return status
}

func (m *Monitor) check(name string, probe Probe, timeout time.Duration) bool {
	if probe == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		m.logger.Debug("probe failed", zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkOutbox() (ok bool, pending, dead int) {
	if m.outbox == nil {
		return false, 0, 0
	}
	pending, err := m.outbox.Size()
	if err == nil {
		dead, err = m.outbox.DeadSize()
	}
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return false, pending, dead
	}
	if dead > 0 {
		m.logger.Debug("outbox has dead letters", zap.Int("dead", dead))
	}
	return true, pending, dead
}
