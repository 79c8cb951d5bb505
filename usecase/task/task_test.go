package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/repository/memory"
	"github.com/fastygo/crm/usecase"
)

type fixture struct {
	uc    *UseCase
	store *memory.Store
	rec   *memory.Recorder
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		rec:   &memory.Recorder{},
		now:   time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.store.AddUser(domain.User{ID: "admin", FullName: "Ada", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	f.store.AddUser(domain.User{ID: "member", FullName: "Max", Role: domain.RoleMember, Status: domain.UserStatusActive})
	f.store.AddUser(domain.User{ID: "other", FullName: "Olga", Role: domain.RoleMember, Status: domain.UserStatusActive})

	f.uc = New(
		f.store.Tasks(), f.store.Comments(), f.store.Users(), f.store,
		usecase.Effects{Queue: f.rec, Changes: f.rec},
		func() time.Time { return f.now },
		Config{Reminders: domain.ReminderDefaults{IntervalHours: 5, MaxReminders: 2}},
		zap.NewNop(),
	)
	return f
}

func (f *fixture) draft() domain.TaskDraft {
	return domain.TaskDraft{Title: "Call the bakery", AssignedTo: "member", DueDate: f.now.Add(48 * time.Hour)}
}

func TestCreateTaskNotifiesAssignee(t *testing.T) {
	f := newFixture(t)

	created, err := f.uc.CreateTask(context.Background(), "admin", f.draft())
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptancePending, created.AcceptanceStatus)
	assert.NotEmpty(t, created.ID)

	intents := f.rec.Intents()
	require.Len(t, intents, 1)
	assert.Equal(t, "member", intents[0].TargetUserID)
	assert.Equal(t, domain.NotificationTaskAssigned, intents[0].Type)
	assert.Equal(t, "New task assigned by Ada", intents[0].Message)

	changes := f.rec.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, domain.TableTasks, changes[0].Table)
	assert.Equal(t, domain.ChangeInsert, changes[0].Type)
}

func TestCreateTaskUnknownAssignee(t *testing.T) {
	f := newFixture(t)
	draft := f.draft()
	draft.AssignedTo = "ghost"

	_, err := f.uc.CreateTask(context.Background(), "admin", draft)
	require.ErrorIs(t, err, domain.ErrTaskAssigneeRequired)
	assert.Empty(t, f.rec.Intents())
}

func TestCreateTaskSelfAssignedSkipsGate(t *testing.T) {
	f := newFixture(t)
	draft := f.draft()
	draft.AssignedTo = "admin"

	created, err := f.uc.CreateTask(context.Background(), "admin", draft)
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptanceAccepted, created.AcceptanceStatus)
	assert.Nil(t, created.NextReminderAt)
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)

	_, err = f.uc.StartTask(ctx, "member", created.ID)
	require.ErrorIs(t, err, domain.ErrTaskNotAccepted)

	_, err = f.uc.AcceptTask(ctx, "other", created.ID)
	require.ErrorIs(t, err, domain.ErrNotAssignee)

	f.now = f.now.Add(time.Hour)
	accepted, err := f.uc.AcceptTask(ctx, "member", created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptanceAccepted, accepted.AcceptanceStatus)

	f.now = f.now.Add(time.Hour)
	_, err = f.uc.StartTask(ctx, "member", created.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	done, err := f.uc.CompleteTask(ctx, "member", created.ID, " shipped ")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)
	assert.Equal(t, "shipped", done.CompletionNote)
	require.NoError(t, done.CheckTimeline())

	stored, err := f.store.Tasks().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
}

func TestDeclinedTaskCannotStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)

	_, err = f.uc.DeclineTask(ctx, "member", created.ID, "no time")
	require.NoError(t, err)

	_, err = f.uc.StartTask(ctx, "admin", created.ID)
	require.ErrorIs(t, err, domain.ErrTaskDeclined)

	stored, err := f.store.Tasks().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, "no time", stored.DeclineReason)
}

func TestTransitionRollsBackOnUpdateFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)
	changesBefore := len(f.rec.Changes())

	f.store.FailOn("tasks.update", errors.New("db down"))
	_, err = f.uc.AcceptTask(ctx, "member", created.ID)
	require.Error(t, err)

	stored, err := f.store.Tasks().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptancePending, stored.AcceptanceStatus)
	assert.Len(t, f.rec.Changes(), changesBefore)
}

func TestRequestRevision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)

	_, err = f.uc.RequestRevision(ctx, "admin", created.ID)
	require.ErrorIs(t, err, domain.ErrRevisionNotCompleted)

	_, err = f.uc.AcceptTask(ctx, "member", created.ID)
	require.NoError(t, err)
	_, err = f.uc.StartTask(ctx, "member", created.ID)
	require.NoError(t, err)
	_, err = f.uc.CompleteTask(ctx, "member", created.ID, "")
	require.NoError(t, err)

	_, err = f.uc.RequestRevision(ctx, "member", created.ID)
	require.ErrorIs(t, err, domain.ErrAdminRequired)

	revision, err := f.uc.RequestRevision(ctx, "admin", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revision: Call the bakery", revision.Title)
	assert.Equal(t, domain.TaskTypeRevision, revision.Type)
	assert.Equal(t, domain.PriorityHigh, revision.Priority)
	assert.Equal(t, 1, revision.RevisionCount)
	assert.Equal(t, f.now.Add(24*time.Hour), revision.DueDate)
	assert.Equal(t, []string{"member", "member"}, f.rec.Targets(domain.NotificationTaskAssigned))

	source, err := f.store.Tasks().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, source.Status)
}

func TestSweepReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)

	n, err := f.uc.SweepReminders(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.uc.SweepReminders(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n, "next reminder is scheduled an interval later")

	f.now = f.now.Add(5 * time.Hour)
	n, err = f.uc.SweepReminders(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.now = f.now.Add(5 * time.Hour)
	n, err = f.uc.SweepReminders(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n, "max reminders reached")

	stored, err := f.store.Tasks().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RemindersSent)
	assert.Nil(t, stored.NextReminderAt)
	assert.Len(t, f.rec.Targets(domain.NotificationTaskReminder), 2)
}

func TestSweepRemindersSkipsAnsweredTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)
	_, err = f.uc.AcceptTask(ctx, "member", created.ID)
	require.NoError(t, err)

	n, err := f.uc.SweepReminders(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.rec.FailWith(errors.New("queue full"))

	created, err := f.uc.CreateTask(context.Background(), "admin", f.draft())
	require.NoError(t, err)

	_, err = f.store.Tasks().GetByID(context.Background(), created.ID)
	require.NoError(t, err)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)

	_, err = f.uc.AddComment(ctx, "member", created.ID, "done?")
	require.ErrorIs(t, err, domain.ErrCommentClosed)

	_, err = f.uc.AcceptTask(ctx, "member", created.ID)
	require.NoError(t, err)
	_, err = f.uc.StartTask(ctx, "member", created.ID)
	require.NoError(t, err)
	_, err = f.uc.CompleteTask(ctx, "member", created.ID, "")
	require.NoError(t, err)

	comment, err := f.uc.AddComment(ctx, "member", created.ID, "  all good  ")
	require.NoError(t, err)
	assert.Equal(t, "all good", comment.Comment)

	_, err = f.uc.ListComments(ctx, "other", created.ID)
	require.ErrorIs(t, err, domain.ErrCommentHidden)

	comments, err := f.uc.ListComments(ctx, "admin", created.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	require.ErrorIs(t, f.uc.DeleteComment(ctx, "other", comment.ID), domain.ErrPermissionDenied)
	require.NoError(t, f.uc.DeleteComment(ctx, "admin", comment.ID))
}

func TestListPendingAcceptance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)
	other := f.draft()
	other.AssignedTo = "other"
	_, err = f.uc.CreateTask(ctx, "admin", other)
	require.NoError(t, err)

	pending, err := f.uc.ListPendingAcceptance(ctx, "member")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "member", pending[0].AssignedTo)

	_, err = f.uc.ListTasks(ctx, "ghost", repository.TaskFilter{})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeleteTaskRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.uc.CreateTask(ctx, "admin", f.draft())
	require.NoError(t, err)

	require.ErrorIs(t, f.uc.DeleteTask(ctx, "member", created.ID), domain.ErrAdminRequired)
	require.NoError(t, f.uc.DeleteTask(ctx, "admin", created.ID))

	_, err = f.uc.GetTask(ctx, "admin", created.ID)
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}
