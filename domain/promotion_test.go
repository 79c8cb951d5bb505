package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromotionRequest(t *testing.T) {
	_, err := NewPromotionRequest(member("m1"), member("m2"), 2, testNow)
	assert.ErrorIs(t, err, ErrAdminRequired)

	_, err = NewPromotionRequest(admin("a2"), admin("a1"), 2, testNow)
	assert.ErrorIs(t, err, ErrAlreadyAdmin)

	_, err = NewPromotionRequest(nil, admin("a1"), 2, testNow)
	assert.ErrorIs(t, err, ErrUserNotFound)

	req, err := NewPromotionRequest(member("m1"), admin("a1"), 3, testNow)
	require.NoError(t, err)
	assert.Equal(t, PromotionPending, req.Status)
	assert.Equal(t, 3, req.RequiredApprovals)
	assert.Equal(t, "m1", req.UserID)
	assert.Equal(t, "a1", req.RequestedBy)

	floor, err := NewPromotionRequest(member("m1"), admin("a1"), 0, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, floor.RequiredApprovals)
}

func TestRecordVoteUpserts(t *testing.T) {
	req, err := NewPromotionRequest(member("m1"), admin("a1"), 2, testNow)
	require.NoError(t, err)
	req.ID = "p1"

	_, err = req.RecordVote(member("m2"), true, testNow)
	assert.ErrorIs(t, err, ErrAdminRequired)

	vote, err := req.RecordVote(admin("a1"), true, testNow)
	require.NoError(t, err)
	assert.Equal(t, "p1", vote.RequestID)
	assert.Equal(t, 1, Tally(req.Approvals))

	later := testNow.Add(time.Minute)
	vote, err = req.RecordVote(admin("a1"), false, later)
	require.NoError(t, err)
	assert.False(t, vote.Approved)
	assert.Len(t, req.Approvals, 1)
	assert.Equal(t, 0, Tally(req.Approvals))
	assert.True(t, req.Approvals[0].CreatedAt.Equal(testNow))
	assert.True(t, req.Approvals[0].UpdatedAt.Equal(later))

	req.Approve(later)
	_, err = req.RecordVote(admin("a2"), true, later)
	assert.ErrorIs(t, err, ErrPromotionResolved)
	require.NotNil(t, req.ResolvedAt)
}

func TestThreshold(t *testing.T) {
	req := &PromotionRequest{Status: PromotionPending, RequiredApprovals: 2}

	tests := []struct {
		name  string
		live  int
		mode  ThresholdMode
		votes int
		need  int
		ok    bool
	}{
		{"frozen uses snapshot", 4, ThresholdFrozen, 2, 2, true},
		{"frozen capped by live admins", 1, ThresholdFrozen, 1, 1, true},
		{"live uses current admins", 4, ThresholdLive, 2, 4, false},
		{"live all approve", 3, ThresholdLive, 3, 3, true},
		{"never below one", 0, ThresholdLive, 0, 1, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := *req
			r.Approvals = nil
			for i := 0; i < tc.votes; i++ {
				r.Approvals = append(r.Approvals, PromotionApproval{AdminID: string(rune('a' + i)), Approved: true})
			}
			r.Approvals = append(r.Approvals, PromotionApproval{AdminID: "nay", Approved: false})
			assert.Equal(t, tc.need, Threshold(&r, tc.live, tc.mode))
			assert.Equal(t, tc.ok, ShouldApprove(&r, tc.live, tc.mode))
		})
	}
}
