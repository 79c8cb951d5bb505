package domain

import "time"

type PromotionStatus string

const (
	PromotionPending  PromotionStatus = "pending"
	PromotionApproved PromotionStatus = "approved"
)

// ThresholdMode selects how many approvals a promotion needs.
type ThresholdMode string

const (
	// ThresholdFrozen uses the admin count captured when the request was opened,
	// capped by the current admin count so a departed admin cannot block it forever.
	// Admins added mid-vote are not waited for, so a request can approve before
	// every current admin has voted; ThresholdLive keeps the every-admin rule.
	ThresholdFrozen ThresholdMode = "frozen"
	// ThresholdLive uses the admin count at the time of each vote.
	ThresholdLive ThresholdMode = "live"
)

func (m ThresholdMode) Valid() bool {
	return m == ThresholdFrozen || m == ThresholdLive
}

// PromotionRequest asks the admins to elevate a member to admin.
type PromotionRequest struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	RequestedBy       string              `json:"requested_by"`
	Status            PromotionStatus     `json:"status"`
	RequiredApprovals int                 `json:"required_approvals"`
	Approvals         []PromotionApproval `json:"approvals"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
}

// PromotionApproval is one admin's vote. There is at most one per (request, admin).
type PromotionApproval struct {
	RequestID string    `json:"request_id"`
	AdminID   string    `json:"admin_id"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPromotionRequest opens a request for target on behalf of an admin.
func NewPromotionRequest(target, requester *User, adminCount int, now time.Time) (*PromotionRequest, error) {
	if requester == nil || !requester.IsActive() || !requester.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if target.IsAdmin() {
		return nil, ErrAlreadyAdmin
	}
	if adminCount < 1 {
		adminCount = 1
	}
	return &PromotionRequest{
		UserID:            target.ID,
		RequestedBy:       requester.ID,
		Status:            PromotionPending,
		RequiredApprovals: adminCount,
		Approvals:         []PromotionApproval{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (r *PromotionRequest) IsPending() bool {
	return r != nil && r.Status == PromotionPending
}

// Tally counts affirmative votes.
func Tally(approvals []PromotionApproval) int {
	n := 0
	for _, a := range approvals {
		if a.Approved {
			n++
		}
	}
	return n
}

// Threshold returns the number of approvals the request needs right now.
func Threshold(r *PromotionRequest, liveAdmins int, mode ThresholdMode) int {
	need := liveAdmins
	if mode != ThresholdLive && r.RequiredApprovals > 0 && r.RequiredApprovals < need {
		need = r.RequiredApprovals
	}
	if need < 1 {
		need = 1
	}
	return need
}

// ShouldApprove reports whether the tally meets the threshold.
func ShouldApprove(r *PromotionRequest, liveAdmins int, mode ThresholdMode) bool {
	return Tally(r.Approvals) >= Threshold(r, liveAdmins, mode)
}

// RecordVote upserts the admin's vote and returns it.
func (r *PromotionRequest) RecordVote(admin *User, approved bool, now time.Time) (PromotionApproval, error) {
	if admin == nil || !admin.IsActive() || !admin.IsAdmin() {
		return PromotionApproval{}, ErrAdminRequired
	}
	if !r.IsPending() {
		return PromotionApproval{}, ErrPromotionResolved
	}
	for i := range r.Approvals {
		if r.Approvals[i].AdminID == admin.ID {
			r.Approvals[i].Approved = approved
			r.Approvals[i].UpdatedAt = now
			r.UpdatedAt = now
			return r.Approvals[i], nil
		}
	}
	vote := PromotionApproval{
		RequestID: r.ID,
		AdminID:   admin.ID,
		Approved:  approved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Approvals = append(r.Approvals, vote)
	r.UpdatedAt = now
	return vote, nil
}

// Approve marks the request resolved.
func (r *PromotionRequest) Approve(now time.Time) {
	r.Status = PromotionApproved
	r.ResolvedAt = timePtr(now)
	r.UpdatedAt = now
}

// VoteResult is reported back to the voter.
type VoteResult struct {
	Request       *PromotionRequest `json:"request"`
	ApprovedCount int               `json:"approved_count"`
	Required      int               `json:"required"`
	Promoted      bool              `json:"promoted"`
}
