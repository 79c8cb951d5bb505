package task

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/usecase"
)

// Config holds the business constants of the task engine.
type Config struct {
	RevisionDue time.Duration
	Reminders   domain.ReminderDefaults
}

type UseCase struct {
	tasks    repository.TaskRepository
	comments repository.TaskCommentRepository
	users    repository.UserRepository
	tx       repository.Transactor
	effects  usecase.Effects
	clock    usecase.Clock
	cfg      Config
	logger   *zap.Logger
}

func New(
	tasks repository.TaskRepository,
	comments repository.TaskCommentRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	effects usecase.Effects,
	clock usecase.Clock,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RevisionDue <= 0 {
		cfg.RevisionDue = 24 * time.Hour
	}
	if cfg.Reminders.IntervalHours <= 0 {
		cfg.Reminders.IntervalHours = 5
	}
	if cfg.Reminders.MaxReminders <= 0 {
		cfg.Reminders.MaxReminders = 6
	}
	if effects.Logger == nil {
		effects.Logger = logger
	}
	return &UseCase{
		tasks:    tasks,
		comments: comments,
		users:    users,
		tx:       tx,
		effects:  effects,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, actorID string, filter repository.TaskFilter) ([]domain.Task, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.tasks.List(ctx, filter)
}

// ListPendingAcceptance is the assignee's inbox of tasks awaiting a response.
func (uc *UseCase) ListPendingAcceptance(ctx context.Context, actorID string) ([]domain.Task, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.tasks.List(ctx, repository.TaskFilter{
		AssignedTo: actorID,
		Status:     string(domain.TaskStatusPending),
		Acceptance: string(domain.AcceptancePending),
	})
}

func (uc *UseCase) GetTask(ctx context.Context, actorID, id string) (*domain.Task, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.tasks.GetByID(ctx, id)
}

func (uc *UseCase) CreateTask(ctx context.Context, actorID string, draft domain.TaskDraft) (*domain.Task, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.users.GetByID(ctx, draft.AssignedTo); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrTaskAssigneeRequired
		}
		return nil, fmt.Errorf("load assignee: %w", err)
	}

	now := uc.clock.Now()
	task, err := domain.NewTask(draft, actor, now, uc.cfg.Reminders)
	if err != nil {
		uc.logger.Debug("task rejected", zap.String("actor_id", actorID), zap.Error(err))
		return nil, err
	}
	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	uc.logger.Info("task created",
		zap.String("task_id", created.ID),
		zap.String("assigned_to", created.AssignedTo),
		zap.String("acceptance_status", string(created.AcceptanceStatus)))
	uc.effects.Changed(ctx, taskChange(domain.ChangeInsert, created, now))
	uc.effects.Notify(ctx, domain.TaskAssignedIntent(created, actor, now))
	return created, nil
}

func (uc *UseCase) AcceptTask(ctx context.Context, actorID, id string) (*domain.Task, error) {
	return uc.transition(ctx, actorID, id, "accepted", func(t *domain.Task, actor *domain.User, now time.Time) error {
		return t.Accept(actor, now)
	})
}

func (uc *UseCase) DeclineTask(ctx context.Context, actorID, id, reason string) (*domain.Task, error) {
	return uc.transition(ctx, actorID, id, "declined", func(t *domain.Task, actor *domain.User, now time.Time) error {
		return t.Decline(actor, reason, now)
	})
}

func (uc *UseCase) StartTask(ctx context.Context, actorID, id string) (*domain.Task, error) {
	return uc.transition(ctx, actorID, id, "started", func(t *domain.Task, actor *domain.User, now time.Time) error {
		return t.Start(actor, now)
	})
}

func (uc *UseCase) CompleteTask(ctx context.Context, actorID, id, note string) (*domain.Task, error) {
	return uc.transition(ctx, actorID, id, "completed", func(t *domain.Task, actor *domain.User, now time.Time) error {
		return t.Complete(actor, note, now)
	})
}

// transition loads the task under a row lock, applies fn and persists the result.
// A rejected guard leaves the stored task untouched.
func (uc *UseCase) transition(
	ctx context.Context,
	actorID, id, verb string,
	fn func(t *domain.Task, actor *domain.User, now time.Time) error,
) (*domain.Task, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var task *domain.Task
	err = usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		t, err := uc.tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(t, actor, now); err != nil {
			return err
		}
		if err := uc.tasks.Update(ctx, t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		task = t
		return nil
	})
	if err != nil {
		uc.logger.Debug("task transition rejected",
			zap.String("task_id", id),
			zap.String("transition", verb),
			zap.Error(err))
		return nil, err
	}

	uc.logger.Info("task "+verb, zap.String("task_id", task.ID), zap.String("actor_id", actor.ID))
	uc.effects.Changed(ctx, taskChange(domain.ChangeUpdate, task, now))
	return task, nil
}

// RequestRevision spawns a follow-up revision task from a completed one.
func (uc *UseCase) RequestRevision(ctx context.Context, actorID, id string) (*domain.Task, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	source, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	revision, err := source.SpawnRevision(actor, now, uc.cfg.RevisionDue)
	if err != nil {
		return nil, err
	}
	created, err := uc.tasks.Create(ctx, revision)
	if err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}

	uc.logger.Info("revision requested",
		zap.String("task_id", created.ID),
		zap.String("source_task_id", source.ID),
		zap.Int("revision_count", created.RevisionCount))
	uc.effects.Changed(ctx, taskChange(domain.ChangeInsert, created, now))
	uc.effects.Notify(ctx, domain.TaskAssignedIntent(created, actor, now))
	return created, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, actorID, id string) error {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return err
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.tasks.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("task deleted", zap.String("task_id", id))
	uc.effects.Changed(ctx, taskChange(domain.ChangeDelete, task, uc.clock.Now()))
	return nil
}

func (uc *UseCase) AddComment(ctx context.Context, actorID, taskID, text string) (*domain.TaskComment, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	comment, err := domain.NewTaskComment(task, actor, text, now)
	if err != nil {
		return nil, err
	}
	if err := uc.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	uc.effects.Changed(ctx, domain.NewChangeEvent(domain.TableTaskComments, domain.ChangeInsert, comment.ID, comment,
		map[string]string{"task_id": comment.TaskID, "user_id": comment.UserID}, now))
	return comment, nil
}

func (uc *UseCase) ListComments(ctx context.Context, actorID, taskID string) ([]domain.TaskComment, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewComments(actor, task) {
		return nil, domain.ErrCommentHidden
	}
	return uc.comments.ListByTask(ctx, taskID)
}

func (uc *UseCase) DeleteComment(ctx context.Context, actorID, commentID string) error {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return err
	}
	comment, err := uc.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if !domain.CanDeleteComment(actor, comment) {
		return domain.ErrPermissionDenied
	}
	if err := uc.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	uc.effects.Changed(ctx, domain.NewChangeEvent(domain.TableTaskComments, domain.ChangeDelete, comment.ID, nil,
		map[string]string{"task_id": comment.TaskID, "user_id": comment.UserID}, uc.clock.Now()))
	return nil
}

// SweepReminders queues reminders for unanswered tasks and advances their schedule.
func (uc *UseCase) SweepReminders(ctx context.Context, batch int) (int, error) {
	now := uc.clock.Now()
	var intents []domain.NotificationIntent
	err := usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		due, err := uc.tasks.ListDueReminders(ctx, now, batch)
		if err != nil {
			return fmt.Errorf("list due reminders: %w", err)
		}
		for i := range due {
			t := &due[i]
			if !t.ReminderDue(now) {
				continue
			}
			intent := domain.TaskReminderIntent(t, now)
			t.MarkReminded(now)
			if err := uc.tasks.Update(ctx, t); err != nil {
				return fmt.Errorf("update reminder state: %w", err)
			}
			intents = append(intents, intent)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	uc.effects.Notify(ctx, intents...)
	if len(intents) > 0 {
		uc.logger.Info("task reminders queued", zap.Int("count", len(intents)))
	}
	return len(intents), nil
}

func taskChange(kind domain.ChangeType, t *domain.Task, now time.Time) domain.ChangeEvent {
	return domain.NewChangeEvent(domain.TableTasks, kind, t.ID, t, map[string]string{
		"assigned_to":       t.AssignedTo,
		"assigned_by":       t.AssignedBy,
		"status":            string(t.Status),
		"acceptance_status": string(t.AcceptanceStatus),
	}, now)
}
