package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "outbox"

// Store is a bbolt-backed outbox with two buckets: pending items keyed by
// priority then enqueue time, and dead letters that ran out of retries.
type Store struct {
	db      *bolt.DB
	pending []byte
	dead    []byte
	maxSize int
}

// Open creates the file and both buckets. maxSize <= 0 means unbounded.
func Open(path string, name string, maxSize int) (*Store, error) {
	if name == "" {
		name = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create outbox dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open outbox %s: %w", path, err)
	}

	s := &Store{db: db, pending: []byte(name), dead: []byte(name + "_dead"), maxSize: maxSize}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{s.pending, s.dead} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create outbox buckets: %w", err)
	}
	return s, nil
}

func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.pending)
		if s.maxSize > 0 && b.Stats().KeyN >= s.maxSize {
			return ErrFull
		}
		return put(b, item)
	})
}

// Peek returns up to limit pending items in delivery order without removing them.
func (s *Store) Peek(limit int) ([]Item, error) {
	return s.list(s.pending, limit)
}

// DeadLetters returns up to limit items that exhausted their retries.
func (s *Store) DeadLetters(limit int) ([]Item, error) {
	return s.list(s.dead, limit)
}

// Ack removes a delivered item.
func (s *Store) Ack(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.pending).Delete(item.key())
	})
}

// Fail records a failed attempt. The item goes to the back of its priority
// lane, or into the dead-letter bucket once maxRetries attempts have failed.
func (s *Store) Fail(item Item, cause error, maxRetries int, now time.Time) (Outcome, error) {
	if s == nil || s.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}
	old := item.key()
	item.Retries++
	if cause != nil {
		item.LastError = cause.Error()
	}
	item.Timestamp = now.UTC()

	outcome := OutcomeRequeued
	target := s.pending
	if maxRetries > 0 && item.Retries >= maxRetries {
		outcome = OutcomeDeadLettered
		target = s.dead
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(s.pending).Delete(old); err != nil {
			return err
		}
		return put(tx.Bucket(target), item)
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// Replay moves every dead letter back to pending with a fresh retry budget.
func (s *Store) Replay(now time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	moved := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		dead, pending := tx.Bucket(s.dead), tx.Bucket(s.pending)
		return eachItem(dead, func(c *bolt.Cursor, item Item) error {
			item.Retries = 0
			item.Timestamp = now.UTC()
			if err := put(pending, item); err != nil {
				return err
			}
			moved++
			return c.Delete()
		})
	})
	return moved, err
}

// Size returns the number of pending items.
func (s *Store) Size() (int, error) {
	return s.count(s.pending)
}

// DeadSize returns the number of dead letters.
func (s *Store) DeadSize() (int, error) {
	return s.count(s.dead)
}

// Expire drops pending and dead items enqueued before cutoff.
func (s *Store) Expire(cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{s.pending, s.dead} {
			err := eachItem(tx.Bucket(name), func(c *bolt.Cursor, item Item) error {
				if !item.Timestamp.Before(cutoff) {
					return nil
				}
				removed++
				return c.Delete()
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) list(bucket []byte, limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}
	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if json.Unmarshal(v, &item) != nil {
				continue
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (s *Store) count(bucket []byte) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// eachItem walks a bucket, skipping undecodable values. fn may delete the
// current entry through the cursor.
func eachItem(b *bolt.Bucket, fn func(c *bolt.Cursor, item Item) error) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var item Item
		if json.Unmarshal(v, &item) != nil {
			continue
		}
		if err := fn(c, item); err != nil {
			return err
		}
	}
	return nil
}

func put(b *bolt.Bucket, item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return b.Put(item.key(), payload)
}
