package buffer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// EntityNotification carries a domain.NotificationIntent awaiting push delivery.
	EntityNotification = "notification"
	// EntityChange carries a domain.ChangeEvent awaiting publication.
	EntityChange = "change"

	PriorityHigh   = 1
	PriorityNormal = 3
	PriorityLow    = 5
)

// ErrFull is returned when the outbox reached its configured capacity.
var ErrFull = errors.New("outbox is full")

// Outcome tells what Fail did with an item.
type Outcome string

const (
	OutcomeRequeued     Outcome = "requeued"
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// Item is an undelivered side effect.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	Entity    string          `json:"entity"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority < PriorityHigh || i.Priority > PriorityLow {
		i.Priority = PriorityNormal
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now().UTC()
	}
}

// key orders items by priority lane, then enqueue time.
func (i Item) key() []byte {
	return []byte(fmt.Sprintf("%d_%020d_%s", i.Priority, i.Timestamp.UnixNano(), i.ID))
}
