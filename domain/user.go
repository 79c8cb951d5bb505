package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"

	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a team member profile. Role drives every permission check.
type User struct {
	ID        string            `json:"id"`
	Email     string            `json:"email,omitempty"`
	FullName  string            `json:"full_name,omitempty"`
	Role      string            `json:"role"`
	Status    string            `json:"status"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName falls back the same way the notification copy does.
func (u *User) DisplayName() string {
	if u == nil || u.FullName == "" {
		return "Someone"
	}
	return u.FullName
}

// DeviceToken is a push registration for one of the user's devices.
type DeviceToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
