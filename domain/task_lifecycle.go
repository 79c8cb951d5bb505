package domain

import (
	"strings"
	"time"
)

const revisionTitlePrefix = "Revision: "

// NewTask builds a pending task from a draft. Assigning to yourself skips the
// acceptance gate.
func NewTask(draft TaskDraft, assigner *User, now time.Time, defaults ReminderDefaults) (*Task, error) {
	if assigner == nil {
		return nil, ErrUnauthorized
	}
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, ErrTaskTitleRequired
	}
	if draft.AssignedTo == "" {
		return nil, ErrTaskAssigneeRequired
	}
	if draft.DueDate.IsZero() {
		return nil, ErrTaskDueRequired
	}
	if hasValue(draft.RelatedLeadID) && hasValue(draft.RelatedClientID) {
		return nil, ErrTaskRelation
	}
	if draft.Type == "" {
		draft.Type = TaskTypeTask
	}
	if !draft.Type.Valid() {
		return nil, ErrTaskType
	}
	if draft.Priority == "" {
		draft.Priority = PriorityNormal
	}
	if !draft.Priority.Valid() {
		return nil, ErrPriority
	}

	interval := draft.ReminderIntervalHours
	if interval <= 0 {
		interval = defaults.IntervalHours
	}
	maxReminders := draft.MaxReminders
	if maxReminders <= 0 {
		maxReminders = defaults.MaxReminders
	}

	task := &Task{
		Title:                 title,
		Description:           strings.TrimSpace(draft.Description),
		AssignedTo:            draft.AssignedTo,
		AssignedBy:            assigner.ID,
		RelatedLeadID:         nonEmpty(draft.RelatedLeadID),
		RelatedClientID:       nonEmpty(draft.RelatedClientID),
		DueDate:               draft.DueDate,
		Status:                TaskStatusPending,
		Type:                  draft.Type,
		Priority:              draft.Priority,
		ReminderIntervalHours: interval,
		MaxReminders:          maxReminders,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	task.applyAcceptanceGate(now)
	return task, nil
}

func (t *Task) applyAcceptanceGate(now time.Time) {
	if t.AssignedTo == t.AssignedBy {
		t.AcceptanceStatus = AcceptanceAccepted
		t.AcceptedAt = timePtr(now)
		t.NextReminderAt = nil
		return
	}
	t.AcceptanceStatus = AcceptancePending
	t.AcceptedAt = nil
	t.NextReminderAt = timePtr(now)
}

// Accept records the assignee's acceptance.
func (t *Task) Accept(actor *User, now time.Time) error {
	if err := t.checkAssigneeResponse(actor); err != nil {
		return err
	}
	t.AcceptanceStatus = AcceptanceAccepted
	t.AcceptedAt = timePtr(now)
	t.NextReminderAt = nil
	t.UpdatedAt = now
	return nil
}

// Decline is terminal: a declined task can never be started or completed.
func (t *Task) Decline(actor *User, reason string, now time.Time) error {
	if err := t.checkAssigneeResponse(actor); err != nil {
		return err
	}
	t.AcceptanceStatus = AcceptanceDeclined
	t.DeclinedAt = timePtr(now)
	t.DeclineReason = strings.TrimSpace(reason)
	t.NextReminderAt = nil
	t.UpdatedAt = now
	return nil
}

func (t *Task) checkAssigneeResponse(actor *User) error {
	if actor == nil || !actor.IsActive() || actor.ID != t.AssignedTo {
		return ErrNotAssignee
	}
	if t.AcceptanceStatus != AcceptancePending {
		return ErrAcceptanceResolved
	}
	return nil
}

// Start moves an accepted pending task into progress.
func (t *Task) Start(actor *User, now time.Time) error {
	if !CanModifyTask(actor, t) {
		return ErrPermissionDenied
	}
	switch t.AcceptanceStatus {
	case AcceptanceDeclined:
		return ErrTaskDeclined
	case AcceptancePending:
		return ErrTaskNotAccepted
	}
	if t.Status != TaskStatusPending {
		return ErrTaskWrongState
	}
	t.Status = TaskStatusInProgress
	t.StartedAt = timePtr(now)
	t.UpdatedAt = now
	return nil
}

// Complete finishes an in-progress task with an optional note.
func (t *Task) Complete(actor *User, note string, now time.Time) error {
	if !CanModifyTask(actor, t) {
		return ErrPermissionDenied
	}
	if t.AcceptanceStatus == AcceptanceDeclined {
		return ErrTaskDeclined
	}
	if t.Status != TaskStatusInProgress {
		return ErrTaskWrongState
	}
	t.Status = TaskStatusCompleted
	t.CompletedAt = timePtr(now)
	t.CompletionNote = strings.TrimSpace(note)
	t.UpdatedAt = now
	return nil
}

// SpawnRevision returns a new high-priority revision task for the same assignee.
// The completed source task is left untouched.
func (t *Task) SpawnRevision(actor *User, now time.Time, dueIn time.Duration) (*Task, error) {
	if actor == nil || !actor.IsActive() || !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if !t.IsCompleted() {
		return nil, ErrRevisionNotCompleted
	}
	revision := &Task{
		Title:                 revisionTitlePrefix + t.Title,
		Description:           "Revision requested for: " + t.Title,
		AssignedTo:            t.AssignedTo,
		AssignedBy:            actor.ID,
		RelatedLeadID:         copyString(t.RelatedLeadID),
		RelatedClientID:       copyString(t.RelatedClientID),
		DueDate:               now.Add(dueIn),
		Status:                TaskStatusPending,
		Type:                  TaskTypeRevision,
		Priority:              PriorityHigh,
		RevisionCount:         t.RevisionCount + 1,
		ReminderIntervalHours: t.ReminderIntervalHours,
		MaxReminders:          t.MaxReminders,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	revision.applyAcceptanceGate(now)
	return revision, nil
}

// CheckTimeline verifies creation <= accepted/declined <= started <= completed
// and that work only happens on accepted tasks.
func (t *Task) CheckTimeline() error {
	if (t.Status == TaskStatusInProgress || t.Status == TaskStatusCompleted) && t.AcceptanceStatus != AcceptanceAccepted {
		return ErrTaskTimeline
	}
	prev := t.CreatedAt
	for _, ts := range []*time.Time{firstSet(t.AcceptedAt, t.DeclinedAt), t.StartedAt, t.CompletedAt} {
		if ts == nil {
			continue
		}
		if ts.Before(prev) {
			return ErrTaskTimeline
		}
		prev = *ts
	}
	return nil
}

// ReminderDue reports whether the assignee should be nudged about an unanswered task.
func (t *Task) ReminderDue(now time.Time) bool {
	if t.AcceptanceStatus != AcceptancePending || t.NextReminderAt == nil {
		return false
	}
	if t.RemindersSent >= t.MaxReminders {
		return false
	}
	return !t.NextReminderAt.After(now)
}

// MarkReminded advances the reminder bookkeeping after a reminder was queued.
func (t *Task) MarkReminded(now time.Time) {
	t.RemindersSent++
	if t.RemindersSent >= t.MaxReminders || t.ReminderIntervalHours <= 0 {
		t.NextReminderAt = nil
	} else {
		t.NextReminderAt = timePtr(now.Add(time.Duration(t.ReminderIntervalHours) * time.Hour))
	}
	t.UpdatedAt = now
}

func hasValue(s *string) bool {
	return s != nil && *s != ""
}

func nonEmpty(s *string) *string {
	if !hasValue(s) {
		return nil
	}
	return copyString(s)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func firstSet(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
