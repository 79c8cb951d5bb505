package repository

import (
	"context"
	"time"

	"github.com/fastygo/crm/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	// Extend moves the stored expiry of a live session.
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	// DeleteByUser revokes every session of the user.
	DeleteByUser(ctx context.Context, userID string) error
}
