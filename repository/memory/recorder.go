package memory

import (
	"context"
	"sync"

	"github.com/fastygo/crm/domain"
)

// Recorder collects notification intents and change events in memory.
type Recorder struct {
	mu      sync.Mutex
	intents []domain.NotificationIntent
	changes []domain.ChangeEvent
	err     error
}

// FailWith makes every later call return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) EnqueueNotification(_ context.Context, intent domain.NotificationIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.intents = append(r.intents, intent)
	return nil
}

func (r *Recorder) PublishChange(_ context.Context, event domain.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.changes = append(r.changes, event)
	return nil
}

func (r *Recorder) Intents() []domain.NotificationIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.NotificationIntent(nil), r.intents...)
}

func (r *Recorder) Changes() []domain.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ChangeEvent(nil), r.changes...)
}

// Targets lists the target user of every recorded intent of the given type.
func (r *Recorder) Targets(kind domain.NotificationType) []string {
	var out []string
	for _, in := range r.Intents() {
		if in.Type == kind {
			out = append(out, in.TargetUserID)
		}
	}
	return out
}
