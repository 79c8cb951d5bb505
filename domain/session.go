package domain

import "time"

// Session is a login of one profile. The JWT handed to clients only carries its id.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return s == nil || !s.ExpiresAt.After(now)
}

// Extend pushes the expiry to now+ttl and returns it. A non-positive ttl
// reuses the session's original lifetime.
func (s *Session) Extend(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = s.ExpiresAt.Sub(s.CreatedAt)
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	s.ExpiresAt = now.Add(ttl)
	return s.ExpiresAt
}
