package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

type userRepository struct{ s *Store }

func (s *Store) Users() repository.UserRepository { return userRepository{s} }

// AddUser seeds a profile.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (r userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r userRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, u := range r.s.data.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r userRepository) CountAdmins(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.data.users {
		if u.Role == domain.RoleAdmin && u.Status == domain.UserStatusActive {
			n++
		}
	}
	return n, nil
}

func (r userRepository) Upsert(_ context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("users.upsert"); err != nil {
		return err
	}
	r.s.data.users[user.ID] = *user
	return nil
}

func (r userRepository) UpdateRole(_ context.Context, id, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("users.update_role"); err != nil {
		return err
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	r.s.data.users[id] = u
	return nil
}

type deviceRepository struct{ s *Store }

func (s *Store) Devices() repository.DeviceTokenRepository { return deviceRepository{s} }

func (r deviceRepository) Save(_ context.Context, token *domain.DeviceToken) error {
	if token == nil || token.Token == "" || token.UserID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.devices[token.Token] = *token
	return nil
}

func (r deviceRepository) ListByUser(_ context.Context, userID string) ([]domain.DeviceToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.DeviceToken
	for _, d := range r.s.data.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (r deviceRepository) Delete(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.data.devices[token]; ok && (userID == "" || d.UserID == userID) {
		delete(r.s.data.devices, token)
	}
	return nil
}

type sessionRepository struct{ s *Store }

func (s *Store) Sessions() repository.SessionRepository { return sessionRepository{s} }

func (r sessionRepository) Get(_ context.Context, id string) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.data.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (r sessionRepository) Save(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.sessions[session.ID] = *session
	return nil
}

func (r sessionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.sessions, id)
	return nil
}

func (r sessionRepository) DeleteByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.data.sessions {
		if sess.UserID == userID {
			delete(r.s.data.sessions, id)
		}
	}
	return nil
}

func (r sessionRepository) Extend(_ context.Context, id string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.data.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.ExpiresAt = expiresAt
	r.s.data.sessions[id] = sess
	return nil
}
