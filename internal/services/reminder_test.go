package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	batch atomic.Int32
	err   error
	block chan struct{}
}

func (s *countingSweeper) SweepReminders(_ context.Context, batch int) (int, error) {
	s.calls.Add(1)
	s.batch.Store(int32(batch))
	if s.block != nil {
		<-s.block
	}
	return 3, s.err
}

func TestReminderRunOnce(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := NewReminderScheduler(sweeper, ReminderConfig{BatchSize: 25}, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.EqualValues(t, 25, sweeper.batch.Load())
}

func TestReminderRunOncePropagatesError(t *testing.T) {
	s, err := NewReminderScheduler(&countingSweeper{err: errors.New("db down")}, ReminderConfig{}, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestReminderSkipsOverlappingRuns(t *testing.T) {
	sweeper := &countingSweeper{block: make(chan struct{})}
	s, err := NewReminderScheduler(sweeper, ReminderConfig{}, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunOnce(context.Background())
	}()
	require.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, time.Millisecond)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	close(sweeper.block)
	<-done
	assert.EqualValues(t, 1, sweeper.calls.Load())
}

func TestReminderScheduleRuns(t *testing.T) {
	sweeper := &countingSweeper{}
	s, err := NewReminderScheduler(sweeper, ReminderConfig{Schedule: "@every 1s"}, nil)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return sweeper.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}
