package repository

import (
	"context"

	"github.com/fastygo/crm/domain"
)

type ClientFilter struct {
	Status string
	LeadID string
	Limit  int
	Offset int
}

type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id string) error
}

type IncomeFilter struct {
	ClientID string
	Limit    int
	Offset   int
}

type IncomeRepository interface {
	Create(ctx context.Context, record *domain.IncomeRecord) error
	GetByID(ctx context.Context, id string) (*domain.IncomeRecord, error)
	List(ctx context.Context, filter IncomeFilter) ([]domain.IncomeRecord, error)
}
