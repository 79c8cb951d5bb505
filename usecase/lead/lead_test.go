package lead

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	f.store.AddUser(domain.User{ID: "a1", FullName: "Ada", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	f.store.AddUser(domain.User{ID: "a2", FullName: "Bo", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	f.store.AddUser(domain.User{ID: "a3", FullName: "Cy", Role: domain.RoleAdmin, Status: domain.UserStatusInactive})
	f.store.AddUser(domain.User{ID: "m1", FullName: "Max", Role: domain.RoleMember, Status: domain.UserStatusActive})

	f.uc = New(
		f.store.Leads(), f.store.Clients(), f.store.Users(), f.store,
		usecase.Effects{Queue: f.rec, Changes: f.rec},
		func() time.Time { return f.now },
		Config{},
		nil,
	)
	return f
}

func (f *fixture) seedLead(t *testing.T) *domain.Lead {
	t.Helper()
	lead, err := f.uc.CreateLead(context.Background(), "m1", &domain.Lead{
		Name:         " Jo Baker ",
		BusinessName: "Baker's Corner",
		Phone:        "555-0100",
		Source:       "walk-in",
	})
	require.NoError(t, err)
	return lead
}

func TestCreateLeadDefaults(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t)

	assert.Equal(t, "Jo Baker", lead.Name)
	assert.Equal(t, domain.LeadNotSure, lead.Status)
	assert.Equal(t, domain.PriorityNormal, lead.Priority)
	assert.Equal(t, domain.FollowUpPending, lead.FollowUpStatus)

	_, err := f.uc.CreateLead(context.Background(), "m1", &domain.Lead{Name: "  "})
	require.ErrorIs(t, err, domain.ErrLeadNameRequired)
}

func TestLogCallAppendsAuthoredNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lead := f.seedLead(t)
	next := f.now.Add(72 * time.Hour)

	updated, err := f.uc.LogCall(ctx, "m1", lead.ID, domain.CallLog{
		Outcome:      domain.OutcomeInterested,
		Summary:      "wants a quote",
		NextFollowUp: &next,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadInterested, updated.Status)
	assert.Equal(t, domain.FollowUpPending, updated.FollowUpStatus)

	history, err := f.uc.History(ctx, "m1", lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	want := domain.LeadNote{
		LeadID:    lead.ID,
		AuthorID:  "m1",
		Outcome:   domain.OutcomeInterested,
		Content:   "wants a quote",
		CreatedAt: f.now,
	}
	if diff := cmp.Diff(want, history[0], cmpopts.IgnoreFields(domain.LeadNote{}, "ID")); diff != "" {
		t.Fatalf("note mismatch (-want +got):\n%s", diff)
	}
}

func TestLogCallRejectsEmptySummary(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t)

	_, err := f.uc.LogCall(context.Background(), "m1", lead.ID, domain.CallLog{Summary: " "})
	require.ErrorIs(t, err, domain.ErrSummaryRequired)

	history, err := f.uc.History(context.Background(), "m1", lead.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestNoResponseSchedulesRetry(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t)

	updated, err := f.uc.NoResponse(context.Background(), "m1", lead.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.NextFollowUp)
	assert.Equal(t, f.now.Add(24*time.Hour), *updated.NextFollowUp)
	assert.Equal(t, domain.FollowUpDone, updated.FollowUpStatus)
}

func TestMarkCallDoneRequiresNextCall(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t)

	_, err := f.uc.MarkCallDone(context.Background(), "m1", lead.ID, "talked", nil)
	require.ErrorIs(t, err, domain.ErrNextCallRequired)
}

func TestAppendNoteFailureRollsBackLead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lead := f.seedLead(t)
	f.store.FailOn("leads.append_note", errors.New("disk full"))

	_, err := f.uc.NoResponse(ctx, "m1", lead.ID)
	require.Error(t, err)

	stored, err := f.store.Leads().GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastContact)
}

func TestConvertToClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lead := f.seedLead(t)

	client, err := f.uc.ConvertToClient(ctx, "a1", lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Baker's Corner", client.BusinessName)
	assert.Equal(t, "Jo Baker", client.OwnerName)
	require.NotNil(t, client.LeadID)
	assert.Equal(t, lead.ID, *client.LeadID)
	assert.Equal(t, domain.ClientOnboarding, client.Status)

	stored, err := f.store.Leads().GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadConverted, stored.Status)

	// Inactive admins and the converting admin are skipped.
	assert.Equal(t, []string{"a2"}, f.rec.Targets(domain.NotificationClientConverted))

	page, err := f.uc.ListLeads(ctx, "m1", domain.LeadListFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Leads)

	_, err = f.uc.ConvertToClient(ctx, "a1", lead.ID)
	require.ErrorIs(t, err, domain.ErrLeadConverted)
	_, err = f.uc.QuickMarkCalled(ctx, "m1", lead.ID)
	require.ErrorIs(t, err, domain.ErrLeadConverted)
}

func TestConvertRollsBackWhenClientCreateFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lead := f.seedLead(t)
	f.store.FailOn("clients.create", errors.New("constraint violation"))

	_, err := f.uc.ConvertToClient(ctx, "a1", lead.ID)
	require.Error(t, err)

	stored, err := f.store.Leads().GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadNotSure, stored.Status)

	clients, err := f.store.Clients().List(ctx, repository.ClientFilter{})
	require.NoError(t, err)
	assert.Empty(t, clients)
	assert.Empty(t, f.rec.Intents())
}

func TestUpdateLeadCannotSetConverted(t *testing.T) {
	f := newFixture(t)
	lead := f.seedLead(t)
	status := domain.LeadConverted

	_, err := f.uc.UpdateLead(context.Background(), "m1", lead.ID, Patch{Status: &status})
	require.ErrorIs(t, err, domain.ErrLeadStatus)
}

func TestUpdateLeadNextFollowUpResetsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lead := f.seedLead(t)
	_, err := f.uc.QuickMarkCalled(ctx, "m1", lead.ID)
	require.NoError(t, err)

	next := f.now.Add(time.Hour)
	name := "  Jo B.  "
	updated, err := f.uc.UpdateLead(ctx, "m1", lead.ID, Patch{Name: &name, NextFollowUp: &next})
	require.NoError(t, err)
	assert.Equal(t, "Jo B.", updated.Name)
	assert.Equal(t, domain.FollowUpPending, updated.FollowUpStatus)
}

func TestDueLeads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fresh := f.seedLead(t)
	called := f.seedLead(t)
	_, err := f.uc.QuickMarkCalled(ctx, "m1", called.ID)
	require.NoError(t, err)

	due, err := f.uc.DueLeads(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, fresh.ID, due[0].ID)
	assert.True(t, due[0].View.IsNewLead)
}

func TestDeleteLeadRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lead := f.seedLead(t)

	require.ErrorIs(t, f.uc.DeleteLead(ctx, "m1", lead.ID), domain.ErrAdminRequired)
	require.NoError(t, f.uc.DeleteLead(ctx, "a1", lead.ID))
	_, err := f.uc.GetLead(ctx, "a1", lead.ID)
	require.ErrorIs(t, err, domain.ErrLeadNotFound)
}
