package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

type taskRepository struct{ s *Store }

func (s *Store) Tasks() repository.TaskRepository { return taskRepository{s} }

func (r taskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (r taskRepository) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Task
	for _, t := range r.s.data.tasks {
		if !match(filter.AssignedTo, t.AssignedTo) ||
			!match(filter.AssignedBy, t.AssignedBy) ||
			!match(filter.Status, string(t.Status)) ||
			!match(filter.Acceptance, string(t.AcceptanceStatus)) ||
			!match(filter.RelatedLeadID, deref(t.RelatedLeadID)) ||
			!match(filter.RelatedClientID, deref(t.RelatedClientID)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r taskRepository) ListDueReminders(_ context.Context, now time.Time, limit int) ([]domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Task
	for _, t := range r.s.data.tasks {
		if t.AcceptanceStatus != domain.AcceptancePending || t.NextReminderAt == nil ||
			t.NextReminderAt.After(now) || t.RemindersSent >= t.MaxReminders {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextReminderAt.Before(*out[j].NextReminderAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r taskRepository) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("tasks.create"); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = r.s.nextID("task")
	}
	r.s.data.tasks[task.ID] = *task
	return task, nil
}

func (r taskRepository) Update(_ context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("tasks.update"); err != nil {
		return err
	}
	if _, ok := r.s.data.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	r.s.data.tasks[task.ID] = *task
	return nil
}

func (r taskRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.s.data.tasks, id)
	for cid, c := range r.s.data.comments {
		if c.TaskID == id {
			delete(r.s.data.comments, cid)
		}
	}
	return nil
}

type commentRepository struct{ s *Store }

func (s *Store) Comments() repository.TaskCommentRepository { return commentRepository{s} }

func (r commentRepository) GetByID(_ context.Context, id string) (*domain.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.comments[id]
	if !ok {
		return nil, domain.ErrCommentNotFound
	}
	return &c, nil
}

func (r commentRepository) ListByTask(_ context.Context, taskID string) ([]domain.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.TaskComment
	for _, c := range r.s.data.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r commentRepository) Create(_ context.Context, comment *domain.TaskComment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if comment.ID == "" {
		comment.ID = r.s.nextID("comment")
	}
	r.s.data.comments[comment.ID] = *comment
	return nil
}

func (r commentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.comments[id]; !ok {
		return domain.ErrCommentNotFound
	}
	delete(r.s.data.comments, id)
	return nil
}

func match(want, got string) bool {
	return want == "" || want == got
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
