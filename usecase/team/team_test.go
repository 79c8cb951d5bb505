package team

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository/memory"
	"github.com/fastygo/crm/usecase"
)

type fixture struct {
	uc    *UseCase
	store *memory.Store
	rec   *memory.Recorder
	now   time.Time
}

func newFixture(t *testing.T, mode domain.ThresholdMode) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		rec:   &memory.Recorder{},
		now:   time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	f.store.AddUser(domain.User{ID: "a1", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	f.store.AddUser(domain.User{ID: "a2", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	f.store.AddUser(domain.User{ID: "m1", Role: domain.RoleMember, Status: domain.UserStatusActive})

	f.uc = New(
		f.store.Users(), f.store.Promotions(), f.store.JoinRequests(), f.store.Invitations(), f.store,
		usecase.Effects{Changes: f.rec},
		func() time.Time { return f.now },
		Config{ThresholdMode: mode, InvitationTTL: 48 * time.Hour},
		nil,
	)
	return f
}

func (f *fixture) role(t *testing.T, id string) string {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.Role
}

func TestPromotionNeedsEveryAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)

	req, err := f.uc.RequestPromotion(ctx, "a1", "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, req.RequiredApprovals)

	_, err = f.uc.RequestPromotion(ctx, "a2", "m1")
	require.ErrorIs(t, err, domain.ErrPromotionPending)

	res, err := f.uc.CastVote(ctx, "a1", req.ID, true)
	require.NoError(t, err)
	assert.False(t, res.Promoted)
	assert.Equal(t, 1, res.ApprovedCount)
	assert.Equal(t, 2, res.Required)
	assert.Equal(t, domain.RoleMember, f.role(t, "m1"))

	res, err = f.uc.CastVote(ctx, "a2", req.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Promoted)
	assert.Equal(t, domain.RoleAdmin, f.role(t, "m1"))

	_, err = f.uc.CastVote(ctx, "a1", req.ID, false)
	require.ErrorIs(t, err, domain.ErrPromotionResolved)

	pending, err := f.uc.ListPendingPromotions(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestVoteIsUpserted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)
	req, err := f.uc.RequestPromotion(ctx, "a1", "m1")
	require.NoError(t, err)

	_, err = f.uc.CastVote(ctx, "a1", req.ID, true)
	require.NoError(t, err)
	res, err := f.uc.CastVote(ctx, "a1", req.ID, false)
	require.NoError(t, err)
	assert.Zero(t, res.ApprovedCount)

	stored, err := f.store.Promotions().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Approvals, 1)
}

func TestThresholdModes(t *testing.T) {
	for _, tc := range []struct {
		mode     domain.ThresholdMode
		promoted bool
	}{
		{mode: domain.ThresholdFrozen, promoted: true},
		{mode: domain.ThresholdLive, promoted: false},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, tc.mode)
			req, err := f.uc.RequestPromotion(ctx, "a1", "m1")
			require.NoError(t, err)

			// A third admin joins after the request was opened.
			f.store.AddUser(domain.User{ID: "a3", Role: domain.RoleAdmin, Status: domain.UserStatusActive})

			_, err = f.uc.CastVote(ctx, "a1", req.ID, true)
			require.NoError(t, err)
			res, err := f.uc.CastVote(ctx, "a2", req.ID, true)
			require.NoError(t, err)
			assert.Equal(t, tc.promoted, res.Promoted)
		})
	}
}

func TestFrozenThresholdShrinksWhenAdminLeaves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)
	req, err := f.uc.RequestPromotion(ctx, "a1", "m1")
	require.NoError(t, err)

	f.store.AddUser(domain.User{ID: "a2", Role: domain.RoleAdmin, Status: domain.UserStatusInactive})

	res, err := f.uc.CastVote(ctx, "a1", req.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Promoted)
}

func TestPromotionRollsBackWhenRoleUpdateFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)
	req, err := f.uc.RequestPromotion(ctx, "a1", "m1")
	require.NoError(t, err)
	_, err = f.uc.CastVote(ctx, "a1", req.ID, true)
	require.NoError(t, err)

	f.store.FailOn("users.update_role", errors.New("db down"))
	_, err = f.uc.CastVote(ctx, "a2", req.ID, true)
	require.Error(t, err)

	stored, err := f.store.Promotions().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PromotionPending, stored.Status)
	assert.Len(t, stored.Approvals, 1)
	assert.Equal(t, domain.RoleMember, f.role(t, "m1"))
}

func TestPromotionGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)

	_, err := f.uc.RequestPromotion(ctx, "m1", "m1")
	require.ErrorIs(t, err, domain.ErrAdminRequired)
	_, err = f.uc.RequestPromotion(ctx, "a1", "a2")
	require.ErrorIs(t, err, domain.ErrAlreadyAdmin)
	_, err = f.uc.RequestPromotion(ctx, "a1", "ghost")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestJoinRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)

	req, err := f.uc.SubmitJoinRequest(ctx, " Sam@Example.com ", "Sam", "hi")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", req.Email)

	_, err = f.uc.SubmitJoinRequest(ctx, "SAM@example.com", "Sam", "again")
	require.ErrorIs(t, err, domain.ErrJoinRequestExists)

	_, err = f.uc.ApproveJoinRequest(ctx, "m1", req.ID)
	require.ErrorIs(t, err, domain.ErrAdminRequired)

	approved, err := f.uc.ApproveJoinRequest(ctx, "a1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JoinApproved, approved.Status)

	_, err = f.uc.RejectJoinRequest(ctx, "a2", req.ID, "late")
	require.ErrorIs(t, err, domain.ErrJoinResolved)

	_, err = f.uc.SubmitJoinRequest(ctx, "sam@example.com", "Sam", "second try")
	require.NoError(t, err)

	pending, err := f.uc.ListJoinRequests(ctx, "a1", string(domain.JoinPending))
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestInvitationAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)

	inv, err := f.uc.CreateInvitation(ctx, "a1", "New@Team.io")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, inv.Role)
	assert.Equal(t, f.now.Add(48*time.Hour), inv.ExpiresAt)

	looked, err := f.uc.LookupInvitation(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "new@team.io", looked.Email)

	user, err := f.uc.AcceptInvitation(ctx, inv.Token, "u-new", "Nia")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, user.Role)
	assert.Equal(t, domain.RoleMember, f.role(t, "u-new"))

	_, err = f.uc.AcceptInvitation(ctx, inv.Token, "u-other", "Oz")
	require.ErrorIs(t, err, domain.ErrInvitationUsed)
	_, err = f.uc.LookupInvitation(ctx, inv.Token)
	require.ErrorIs(t, err, domain.ErrInvitationUsed)
}

func TestInvitationExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)
	inv, err := f.uc.CreateInvitation(ctx, "a1", "late@team.io")
	require.NoError(t, err)

	f.now = f.now.Add(48 * time.Hour)
	_, err = f.uc.AcceptInvitation(ctx, inv.Token, "u-late", "")
	require.ErrorIs(t, err, domain.ErrInvitationExpired)

	_, err = f.store.Users().GetByID(ctx, "u-late")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestInvitationCannotDemoteAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.ThresholdFrozen)
	inv, err := f.uc.CreateInvitation(ctx, "a1", "boss@team.io")
	require.NoError(t, err)

	_, err = f.uc.AcceptInvitation(ctx, inv.Token, "a2", "")
	require.ErrorIs(t, err, domain.ErrAlreadyAdmin)
	assert.Equal(t, domain.RoleAdmin, f.role(t, "a2"))
}

func TestInvitationUnknownToken(t *testing.T) {
	f := newFixture(t, domain.ThresholdFrozen)

	_, err := f.uc.LookupInvitation(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrInvitationNotFound)
}
