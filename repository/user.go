package repository

import (
	"context"

	"github.com/fastygo/crm/domain"
)

type UserFilter struct {
	Role   string
	Status string
	Limit  int
	Offset int
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	CountAdmins(ctx context.Context) (int, error)
	Upsert(ctx context.Context, user *domain.User) error
	UpdateRole(ctx context.Context, id, role string) error
}

type DeviceTokenRepository interface {
	Save(ctx context.Context, token *domain.DeviceToken) error
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	Delete(ctx context.Context, userID, token string) error
}
