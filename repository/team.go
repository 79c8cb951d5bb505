package repository

import (
	"context"

	"github.com/fastygo/crm/domain"
)

type PromotionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.PromotionRequest, error)
	// GetForUpdate locks the request row and loads its approvals.
	GetForUpdate(ctx context.Context, id string) (*domain.PromotionRequest, error)
	FindPendingByUser(ctx context.Context, userID string) (*domain.PromotionRequest, error)
	ListPending(ctx context.Context) ([]domain.PromotionRequest, error)
	Create(ctx context.Context, req *domain.PromotionRequest) error
	Update(ctx context.Context, req *domain.PromotionRequest) error
	UpsertApproval(ctx context.Context, approval *domain.PromotionApproval) error
}

type JoinRequestRepository interface {
	GetByID(ctx context.Context, id string) (*domain.JoinRequest, error)
	FindPendingByEmail(ctx context.Context, email string) (*domain.JoinRequest, error)
	List(ctx context.Context, status string) ([]domain.JoinRequest, error)
	Create(ctx context.Context, req *domain.JoinRequest) error
	Update(ctx context.Context, req *domain.JoinRequest) error
}

type InvitationRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.Invitation, error)
	List(ctx context.Context, status string) ([]domain.Invitation, error)
	Create(ctx context.Context, inv *domain.Invitation) error
	Update(ctx context.Context, inv *domain.Invitation) error
}
