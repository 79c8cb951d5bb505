package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

const taskColumns = `id, title, description, assigned_to, assigned_by, related_lead_id, related_client_id,
	due_date, status, task_type, priority,
	acceptance_status, accepted_at, declined_at, decline_reason,
	completion_note, started_at, completed_at, revision_count,
	reminder_interval_hours, next_reminder_at, reminders_sent, max_reminders,
	created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return scanTask(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	WHERE ($1 = '' OR assigned_to = $1)
	  AND ($2 = '' OR assigned_by = $2)
	  AND ($3 = '' OR status = $3)
	  AND ($4 = '' OR acceptance_status = $4)
	  AND ($5 = '' OR related_lead_id = $5)
	  AND ($6 = '' OR related_client_id = $6)
	ORDER BY due_date ASC, created_at DESC
	LIMIT $7 OFFSET $8`
	rows, err := conn(ctx, r.pool).Query(ctx, query,
		filter.AssignedTo,
		filter.AssignedBy,
		filter.Status,
		filter.Acceptance,
		filter.RelatedLeadID,
		filter.RelatedClientID,
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *taskRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	WHERE acceptance_status = 'pending'
	  AND next_reminder_at IS NOT NULL
	  AND next_reminder_at <= $1
	  AND reminders_sent < max_reminders
	ORDER BY next_reminder_at
	LIMIT $2`
	if inTx(ctx) {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	rows, err := conn(ctx, r.pool).Query(ctx, query, now, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, title, description, assigned_to, assigned_by, related_lead_id, related_client_id,
		due_date, status, task_type, priority,
		acceptance_status, accepted_at, declined_at, decline_reason,
		completion_note, started_at, completed_at, revision_count,
		reminder_interval_hours, next_reminder_at, reminders_sent, max_reminders,
		created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		$20, $21, $22, $23, COALESCE($24, NOW()), COALESCE($24, NOW()))
	RETURNING created_at, updated_at
	`

	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.AssignedBy,
		nullStringPtr(task.RelatedLeadID),
		nullStringPtr(task.RelatedClientID),
		task.DueDate,
		task.Status,
		task.Type,
		task.Priority,
		task.AcceptanceStatus,
		nullTimePtr(task.AcceptedAt),
		nullTimePtr(task.DeclinedAt),
		task.DeclineReason,
		task.CompletionNote,
		nullTimePtr(task.StartedAt),
		nullTimePtr(task.CompletedAt),
		task.RevisionCount,
		task.ReminderIntervalHours,
		nullTimePtr(task.NextReminderAt),
		task.RemindersSent,
		task.MaxReminders,
		nullTime(task.CreatedAt),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		assigned_to = $4,
		due_date = $5,
		status = $6,
		priority = $7,
		acceptance_status = $8,
		accepted_at = $9,
		declined_at = $10,
		decline_reason = $11,
		completion_note = $12,
		started_at = $13,
		completed_at = $14,
		next_reminder_at = $15,
		reminders_sent = $16,
		updated_at = COALESCE($17, NOW())
	WHERE id = $1
	RETURNING updated_at
	`

	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.DueDate,
		task.Status,
		task.Priority,
		task.AcceptanceStatus,
		nullTimePtr(task.AcceptedAt),
		nullTimePtr(task.DeclinedAt),
		task.DeclineReason,
		task.CompletionNote,
		nullTimePtr(task.StartedAt),
		nullTimePtr(task.CompletedAt),
		nullTimePtr(task.NextReminderAt),
		task.RemindersSent,
		nullTime(task.UpdatedAt),
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AssignedTo,
		&task.AssignedBy,
		&task.RelatedLeadID,
		&task.RelatedClientID,
		&task.DueDate,
		&task.Status,
		&task.Type,
		&task.Priority,
		&task.AcceptanceStatus,
		&task.AcceptedAt,
		&task.DeclinedAt,
		&task.DeclineReason,
		&task.CompletionNote,
		&task.StartedAt,
		&task.CompletedAt,
		&task.RevisionCount,
		&task.ReminderIntervalHours,
		&task.NextReminderAt,
		&task.RemindersSent,
		&task.MaxReminders,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	return &task, nil
}

type taskCommentRepository struct {
	pool *pgxpool.Pool
}

// NewTaskCommentRepository returns a Postgres-backed comment store.
func NewTaskCommentRepository(pool *pgxpool.Pool) repository.TaskCommentRepository {
	return &taskCommentRepository{pool: pool}
}

func (r *taskCommentRepository) GetByID(ctx context.Context, id string) (*domain.TaskComment, error) {
	const query = `SELECT id, task_id, user_id, comment, created_at, updated_at FROM task_comments WHERE id = $1`
	return scanComment(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *taskCommentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.TaskComment, error) {
	const query = `
	SELECT id, task_id, user_id, comment, created_at, updated_at
	FROM task_comments
	WHERE task_id = $1
	ORDER BY created_at ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.TaskComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (r *taskCommentRepository) Create(ctx context.Context, comment *domain.TaskComment) error {
	if comment == nil {
		return domain.ErrInvalidPayload
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO task_comments (id, task_id, user_id, comment, created_at, updated_at)
	VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), COALESCE($5, NOW()))
	RETURNING created_at, updated_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		comment.ID, comment.TaskID, comment.UserID, comment.Comment, nullTime(comment.CreatedAt),
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)
}

func (r *taskCommentRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM task_comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func scanComment(row scanner) (*domain.TaskComment, error) {
	var c domain.TaskComment
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Comment, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCommentNotFound
		}
		return nil, err
	}
	return &c, nil
}
