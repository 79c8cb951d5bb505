package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow      = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	testDefaults = ReminderDefaults{IntervalHours: 5, MaxReminders: 6}
)

func admin(id string) *User {
	return &User{ID: id, Role: RoleAdmin, Status: UserStatusActive, FullName: "Admin " + id}
}

func member(id string) *User {
	return &User{ID: id, Role: RoleMember, Status: UserStatusActive, FullName: "Member " + id}
}

func draftFor(assignee string) TaskDraft {
	return TaskDraft{
		Title:      "  Call the printer  ",
		AssignedTo: assignee,
		DueDate:    testNow.Add(48 * time.Hour),
	}
}

func newPendingTask(t *testing.T) *Task {
	t.Helper()
	task, err := NewTask(draftFor("m1"), admin("a1"), testNow, testDefaults)
	require.NoError(t, err)
	task.ID = "t1"
	return task
}

func TestNewTaskAcceptanceGate(t *testing.T) {
	task, err := NewTask(draftFor("m1"), admin("a1"), testNow, testDefaults)
	require.NoError(t, err)

	assert.Equal(t, "Call the printer", task.Title)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, AcceptancePending, task.AcceptanceStatus)
	assert.Equal(t, TaskTypeTask, task.Type)
	assert.Equal(t, PriorityNormal, task.Priority)
	assert.Equal(t, 5, task.ReminderIntervalHours)
	assert.Equal(t, 6, task.MaxReminders)
	require.NotNil(t, task.NextReminderAt)
	assert.True(t, task.NextReminderAt.Equal(testNow))
	assert.Nil(t, task.AcceptedAt)

	self, err := NewTask(draftFor("a1"), admin("a1"), testNow, testDefaults)
	require.NoError(t, err)
	assert.Equal(t, AcceptanceAccepted, self.AcceptanceStatus)
	require.NotNil(t, self.AcceptedAt)
	assert.Nil(t, self.NextReminderAt)
}

func TestNewTaskValidation(t *testing.T) {
	lead, client := "l1", "c1"
	tests := []struct {
		name   string
		mutate func(d *TaskDraft)
		want   error
	}{
		{"blank title", func(d *TaskDraft) { d.Title = "   " }, ErrTaskTitleRequired},
		{"no assignee", func(d *TaskDraft) { d.AssignedTo = "" }, ErrTaskAssigneeRequired},
		{"no due date", func(d *TaskDraft) { d.DueDate = time.Time{} }, ErrTaskDueRequired},
		{"lead and client", func(d *TaskDraft) { d.RelatedLeadID, d.RelatedClientID = &lead, &client }, ErrTaskRelation},
		{"bad type", func(d *TaskDraft) { d.Type = "chore" }, ErrTaskType},
		{"bad priority", func(d *TaskDraft) { d.Priority = "whenever" }, ErrPriority},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := draftFor("m1")
			tc.mutate(&d)
			_, err := NewTask(d, admin("a1"), testNow, testDefaults)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := NewTask(draftFor("m1"), nil, testNow, testDefaults)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAcceptAndDecline(t *testing.T) {
	task := newPendingTask(t)

	assert.ErrorIs(t, task.Accept(member("m2"), testNow), ErrNotAssignee)
	assert.ErrorIs(t, task.Accept(admin("a1"), testNow), ErrNotAssignee)

	later := testNow.Add(time.Hour)
	require.NoError(t, task.Accept(member("m1"), later))
	assert.Equal(t, AcceptanceAccepted, task.AcceptanceStatus)
	assert.True(t, task.AcceptedAt.Equal(later))
	assert.Nil(t, task.NextReminderAt)

	assert.ErrorIs(t, task.Accept(member("m1"), later), ErrAcceptanceResolved)
	assert.ErrorIs(t, task.Decline(member("m1"), "busy", later), ErrAcceptanceResolved)

	declined := newPendingTask(t)
	require.NoError(t, declined.Decline(member("m1"), "  on leave ", later))
	assert.Equal(t, "on leave", declined.DeclineReason)
	assert.True(t, declined.IsDeclined())
	assert.ErrorIs(t, declined.Start(member("m1"), later), ErrTaskDeclined)
	assert.ErrorIs(t, declined.Complete(admin("a1"), "", later), ErrTaskDeclined)
}

func TestStartAndComplete(t *testing.T) {
	task := newPendingTask(t)
	t1 := testNow.Add(time.Hour)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	assert.ErrorIs(t, task.Start(member("m1"), t1), ErrTaskNotAccepted)
	assert.ErrorIs(t, task.Complete(member("m1"), "", t1), ErrTaskWrongState)

	require.NoError(t, task.Accept(member("m1"), t1))
	assert.ErrorIs(t, task.Start(member("m2"), t2), ErrPermissionDenied)
	require.NoError(t, task.Start(member("m1"), t2))
	assert.Equal(t, TaskStatusInProgress, task.Status)
	assert.ErrorIs(t, task.Start(member("m1"), t2), ErrTaskWrongState)

	require.NoError(t, task.Complete(admin("a9"), " shipped ", t3))
	assert.True(t, task.IsCompleted())
	assert.Equal(t, "shipped", task.CompletionNote)
	assert.NoError(t, task.CheckTimeline())
}

func TestCheckTimeline(t *testing.T) {
	task := newPendingTask(t)
	task.Status = TaskStatusInProgress
	assert.ErrorIs(t, task.CheckTimeline(), ErrTaskTimeline)

	task = newPendingTask(t)
	require.NoError(t, task.Accept(member("m1"), testNow.Add(time.Hour)))
	task.Status = TaskStatusInProgress
	task.StartedAt = timePtr(testNow.Add(-time.Hour))
	assert.ErrorIs(t, task.CheckTimeline(), ErrTaskTimeline)
}

func TestSpawnRevision(t *testing.T) {
	task := newPendingTask(t)
	lead := "l1"
	task.RelatedLeadID = &lead

	_, err := task.SpawnRevision(admin("a1"), testNow, 24*time.Hour)
	assert.ErrorIs(t, err, ErrRevisionNotCompleted)

	require.NoError(t, task.Accept(member("m1"), testNow))
	require.NoError(t, task.Start(member("m1"), testNow))
	require.NoError(t, task.Complete(member("m1"), "", testNow))

	_, err = task.SpawnRevision(member("m1"), testNow, 24*time.Hour)
	assert.ErrorIs(t, err, ErrAdminRequired)

	later := testNow.Add(2 * time.Hour)
	rev, err := task.SpawnRevision(admin("a2"), later, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "Revision: Call the printer", rev.Title)
	assert.Equal(t, TaskTypeRevision, rev.Type)
	assert.Equal(t, PriorityHigh, rev.Priority)
	assert.Equal(t, 1, rev.RevisionCount)
	assert.Equal(t, "m1", rev.AssignedTo)
	assert.Equal(t, "a2", rev.AssignedBy)
	assert.Equal(t, AcceptancePending, rev.AcceptanceStatus)
	assert.True(t, rev.DueDate.Equal(later.Add(24*time.Hour)))
	require.NotNil(t, rev.RelatedLeadID)
	assert.Equal(t, "l1", *rev.RelatedLeadID)

	// the copy is independent of the source task
	*rev.RelatedLeadID = "changed"
	assert.Equal(t, "l1", *task.RelatedLeadID)
	assert.True(t, task.IsCompleted())
}

func TestReminderBookkeeping(t *testing.T) {
	task := newPendingTask(t)
	task.MaxReminders = 2

	assert.True(t, task.ReminderDue(testNow))
	task.MarkReminded(testNow)
	assert.Equal(t, 1, task.RemindersSent)
	require.NotNil(t, task.NextReminderAt)
	assert.True(t, task.NextReminderAt.Equal(testNow.Add(5*time.Hour)))
	assert.False(t, task.ReminderDue(testNow.Add(4*time.Hour)))
	assert.True(t, task.ReminderDue(testNow.Add(5*time.Hour)))

	task.MarkReminded(testNow.Add(5 * time.Hour))
	assert.Equal(t, 2, task.RemindersSent)
	assert.Nil(t, task.NextReminderAt)
	assert.False(t, task.ReminderDue(testNow.Add(100*time.Hour)))

	accepted := newPendingTask(t)
	require.NoError(t, accepted.Accept(member("m1"), testNow))
	assert.False(t, accepted.ReminderDue(testNow))
}

func TestTaskPolicy(t *testing.T) {
	task := &Task{ID: "t1", AssignedTo: "m1", Status: TaskStatusPending}
	inactive := member("m1")
	inactive.Status = UserStatusInactive

	tests := []struct {
		name  string
		actor *User
		want  bool
	}{
		{"assignee", member("m1"), true},
		{"other member", member("m2"), false},
		{"admin", admin("a1"), true},
		{"inactive assignee", inactive, false},
		{"nobody", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanModifyTask(tc.actor, task))
			assert.Equal(t, tc.want, CanViewComments(tc.actor, task))
		})
	}

	assert.False(t, CanAddComment(member("m1"), task))
	task.Status = TaskStatusCompleted
	assert.True(t, CanAddComment(member("m1"), task))
	assert.False(t, CanAddComment(admin("a1"), task))

	comment := &TaskComment{ID: "c1", UserID: "m2"}
	assert.True(t, CanDeleteComment(member("m2"), comment))
	assert.True(t, CanDeleteComment(admin("a1"), comment))
	assert.False(t, CanDeleteComment(member("m1"), comment))
}

func TestNewTaskComment(t *testing.T) {
	task := &Task{ID: "t1", AssignedTo: "m1", Status: TaskStatusInProgress}
	_, err := NewTaskComment(task, member("m1"), "done", testNow)
	assert.ErrorIs(t, err, ErrCommentClosed)

	task.Status = TaskStatusCompleted
	_, err = NewTaskComment(task, member("m1"), "   ", testNow)
	assert.ErrorIs(t, err, ErrCommentRequired)

	c, err := NewTaskComment(task, member("m1"), " all good ", testNow)
	require.NoError(t, err)
	assert.Equal(t, "all good", c.Comment)
	assert.Equal(t, "t1", c.TaskID)
	assert.Equal(t, "m1", c.UserID)
}
