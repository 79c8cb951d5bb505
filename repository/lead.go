package repository

import (
	"context"

	"github.com/fastygo/crm/domain"
)

type LeadFilter struct {
	AssignedTo       string
	IncludeConverted bool
	Limit            int
	Offset           int
}

type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	Delete(ctx context.Context, id string) error
	AppendNote(ctx context.Context, note *domain.LeadNote) error
	ListNotes(ctx context.Context, leadID string) ([]domain.LeadNote, error)
}
