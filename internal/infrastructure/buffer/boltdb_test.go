package buffer

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, maxSize int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "outbox.db"), "", maxSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestStoreOrdersByPriorityThenTime(t *testing.T) {
	s := openStore(t, 0)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Enqueue(Item{ID: "late-normal", Entity: EntityChange, Priority: PriorityNormal, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.Enqueue(Item{ID: "early-normal", Entity: EntityChange, Priority: PriorityNormal, Timestamp: base}))
	require.NoError(t, s.Enqueue(Item{ID: "high", Entity: EntityNotification, Priority: PriorityHigh, Timestamp: base.Add(time.Hour)}))

	items, err := s.Peek(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "early-normal", "late-normal"}, ids(items))
}

func TestStoreAckAndFail(t *testing.T) {
	s := openStore(t, 0)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Enqueue(Item{ID: "a", Entity: EntityNotification, Data: json.RawMessage(`{}`), Timestamp: base}))
	require.NoError(t, s.Enqueue(Item{ID: "b", Entity: EntityNotification, Data: json.RawMessage(`{}`), Timestamp: base.Add(time.Second)}))

	items, err := s.Peek(1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	outcome, err := s.Fail(items[0], errors.New("boom"), 3, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRequeued, outcome)

	items, err = s.Peek(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(items), "failed item moves to the back of its lane")
	assert.Equal(t, 1, items[1].Retries)
	assert.Equal(t, "boom", items[1].LastError)

	require.NoError(t, s.Ack(items[0]))
	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestStoreDeadLettersAndReplay(t *testing.T) {
	s := openStore(t, 0)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Enqueue(Item{ID: "x", Entity: EntityChange, Retries: 1, Timestamp: now}))

	items, err := s.Peek(1)
	require.NoError(t, err)
	outcome, err := s.Fail(items[0], errors.New("redis down"), 2, now)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeadLettered, outcome)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	dead, err := s.DeadLetters(10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].Retries)

	moved, err := s.Replay(now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	deadSize, err := s.DeadSize()
	require.NoError(t, err)
	assert.Zero(t, deadSize)
	items, err = s.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Zero(t, items[0].Retries)
}

func TestStoreRejectsWhenFull(t *testing.T) {
	s := openStore(t, 1)
	require.NoError(t, s.Enqueue(Item{Entity: EntityChange}))
	assert.ErrorIs(t, s.Enqueue(Item{Entity: EntityChange}), ErrFull)
}

func TestStoreExpire(t *testing.T) {
	s := openStore(t, 0)
	now := time.Now().UTC()
	require.NoError(t, s.Enqueue(Item{ID: "old", Entity: EntityChange, Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.Enqueue(Item{ID: "new", Entity: EntityChange, Timestamp: now}))

	removed, err := s.Expire(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	items, err := s.Peek(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(items))
}
