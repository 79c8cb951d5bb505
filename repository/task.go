package repository

import (
	"context"
	"time"

	"github.com/fastygo/crm/domain"
)

type TaskFilter struct {
	AssignedTo      string
	AssignedBy      string
	Status          string
	Acceptance      string
	RelatedLeadID   string
	RelatedClientID string
	Limit           int
	Offset          int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	// ListDueReminders locks and returns pending-acceptance tasks whose reminder is due.
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
}

type TaskCommentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TaskComment, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.TaskComment, error)
	Create(ctx context.Context, comment *domain.TaskComment) error
	Delete(ctx context.Context, id string) error
}
