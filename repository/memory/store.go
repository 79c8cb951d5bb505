// Package memory holds map-backed repositories with the same contracts as the
// postgres ones. Use cases are tested against it.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastygo/crm/domain"
)

type txKey struct{}

type state struct {
	users       map[string]domain.User
	devices     map[string]domain.DeviceToken
	tasks       map[string]domain.Task
	comments    map[string]domain.TaskComment
	leads       map[string]domain.Lead
	notes       []domain.LeadNote
	clients     map[string]domain.Client
	income      map[string]domain.IncomeRecord
	promotions  map[string]domain.PromotionRequest
	joins       map[string]domain.JoinRequest
	invitations map[string]domain.Invitation
	sessions    map[string]domain.Session
}

func newState() state {
	return state{
		users:       map[string]domain.User{},
		devices:     map[string]domain.DeviceToken{},
		tasks:       map[string]domain.Task{},
		comments:    map[string]domain.TaskComment{},
		leads:       map[string]domain.Lead{},
		clients:     map[string]domain.Client{},
		income:      map[string]domain.IncomeRecord{},
		promotions:  map[string]domain.PromotionRequest{},
		joins:       map[string]domain.JoinRequest{},
		invitations: map[string]domain.Invitation{},
		sessions:    map[string]domain.Session{},
	}
}

func (s state) clone() state {
	c := state{
		users:       cloneMap(s.users),
		devices:     cloneMap(s.devices),
		tasks:       cloneMap(s.tasks),
		comments:    cloneMap(s.comments),
		leads:       cloneMap(s.leads),
		notes:       append([]domain.LeadNote(nil), s.notes...),
		clients:     cloneMap(s.clients),
		income:      cloneMap(s.income),
		promotions:  make(map[string]domain.PromotionRequest, len(s.promotions)),
		joins:       cloneMap(s.joins),
		invitations: cloneMap(s.invitations),
		sessions:    cloneMap(s.sessions),
	}
	for k, v := range s.promotions {
		v.Approvals = append([]domain.PromotionApproval(nil), v.Approvals...)
		c.promotions[k] = v
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is the shared backing state of every repository it hands out.
type Store struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	data  state
	seq   int
	fails map[string]error
}

func New() *Store {
	return &Store{data: newState(), fails: map[string]error{}}
}

// FailOn makes the next call of op (for example "clients.create") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[op] = err
}

// check must be called with mu held.
func (s *Store) check(op string) error {
	if err, ok := s.fails[op]; ok {
		delete(s.fails, op)
		return err
	}
	return nil
}

// nextID must be called with mu held.
func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// WithinTx serializes transactions and restores the previous state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}
