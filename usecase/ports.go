package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

// NotificationQueue hands notification intents to the delivery pipeline.
type NotificationQueue interface {
	EnqueueNotification(ctx context.Context, intent domain.NotificationIntent) error
}

// ChangePublisher announces committed row changes to realtime subscribers.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event domain.ChangeEvent) error
}

// Clock is injected so state machines can be tested against a fixed now.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// Effects carries the post-commit side effects of mutating use cases. Failures
// are logged and never roll back the mutation that produced them.
type Effects struct {
	Queue   NotificationQueue
	Changes ChangePublisher
	Logger  *zap.Logger
}

func (e Effects) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e Effects) Notify(ctx context.Context, intents ...domain.NotificationIntent) {
	if e.Queue == nil {
		return
	}
	for _, intent := range intents {
		if intent.TargetUserID == "" {
			continue
		}
		if err := e.Queue.EnqueueNotification(ctx, intent); err != nil {
			e.logger().Warn("notification not queued",
				zap.String("type", string(intent.Type)),
				zap.String("target_user_id", intent.TargetUserID),
				zap.Error(err))
		}
	}
}

func (e Effects) Changed(ctx context.Context, events ...domain.ChangeEvent) {
	if e.Changes == nil {
		return
	}
	for _, ev := range events {
		if err := e.Changes.PublishChange(ctx, ev); err != nil {
			e.logger().Warn("change event not published",
				zap.String("table", ev.Table),
				zap.String("record_id", ev.RecordID),
				zap.Error(err))
		}
	}
}

// LoadActor resolves the authenticated user. Unknown or inactive profiles are unauthorized.
func LoadActor(ctx context.Context, users repository.UserRepository, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrUnauthorized
	}
	actor, err := users.GetByID(ctx, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !actor.IsActive() {
		return nil, domain.ErrUnauthorized
	}
	return actor, nil
}

// RequireAdmin loads the actor and checks the admin role.
func RequireAdmin(ctx context.Context, users repository.UserRepository, id string) (*domain.User, error) {
	actor, err := LoadActor(ctx, users, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}
	return actor, nil
}

// AdminIDs lists active admins, used to fan out admin notifications.
func AdminIDs(ctx context.Context, users repository.UserRepository) ([]string, error) {
	admins, err := users.List(ctx, repository.UserFilter{Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// RunInTx falls back to running fn directly when no transactor is configured.
func RunInTx(ctx context.Context, tx repository.Transactor, fn func(ctx context.Context) error) error {
	if tx == nil {
		return fn(ctx)
	}
	return tx.WithinTx(ctx, fn)
}
