package domain

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

type TaskType string

const (
	TaskTypeTask     TaskType = "task"
	TaskTypeRevision TaskType = "revision"
	TaskTypeReview   TaskType = "review"
	TaskTypeDelivery TaskType = "delivery"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeTask, TaskTypeRevision, TaskTypeReview, TaskTypeDelivery:
		return true
	}
	return false
}

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceDeclined AcceptanceStatus = "declined"
)

// Priority is shared by tasks and leads.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities urgent first. Unknown values sort as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Task is a unit of work assigned to a team member, optionally tied to a lead or a client.
type Task struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	AssignedTo      string  `json:"assigned_to"`
	AssignedBy      string  `json:"assigned_by"`
	RelatedLeadID   *string `json:"related_lead_id,omitempty"`
	RelatedClientID *string `json:"related_client_id,omitempty"`

	DueDate  time.Time  `json:"due_date"`
	Status   TaskStatus `json:"status"`
	Type     TaskType   `json:"task_type"`
	Priority Priority   `json:"priority"`

	AcceptanceStatus AcceptanceStatus `json:"acceptance_status"`
	AcceptedAt       *time.Time       `json:"accepted_at,omitempty"`
	DeclinedAt       *time.Time       `json:"declined_at,omitempty"`
	DeclineReason    string           `json:"decline_reason,omitempty"`

	CompletionNote string     `json:"completion_note,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	RevisionCount  int        `json:"revision_count"`

	ReminderIntervalHours int        `json:"reminder_interval_hours"`
	NextReminderAt        *time.Time `json:"next_reminder_at,omitempty"`
	RemindersSent         int        `json:"reminders_sent"`
	MaxReminders          int        `json:"max_reminders"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == TaskStatusCompleted
}

func (t *Task) IsDeclined() bool {
	return t != nil && t.AcceptanceStatus == AcceptanceDeclined
}

// TaskDraft carries the assigner's input for a new task.
type TaskDraft struct {
	Title                 string
	Description           string
	AssignedTo            string
	RelatedLeadID         *string
	RelatedClientID       *string
	DueDate               time.Time
	Type                  TaskType
	Priority              Priority
	ReminderIntervalHours int
	MaxReminders          int
}

// ReminderDefaults seeds the reminder bookkeeping of new tasks.
type ReminderDefaults struct {
	IntervalHours int
	MaxReminders  int
}

// TaskComment is a note left on a task after completion.
type TaskComment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTaskComment validates and trims the comment text.
func NewTaskComment(task *Task, author *User, text string, now time.Time) (*TaskComment, error) {
	if !CanAddComment(author, task) {
		return nil, ErrCommentClosed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrCommentRequired
	}
	return &TaskComment{
		TaskID:    task.ID,
		UserID:    author.ID,
		Comment:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
