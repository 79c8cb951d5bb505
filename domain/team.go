package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type JoinRequestStatus string

const (
	JoinPending  JoinRequestStatus = "pending"
	JoinApproved JoinRequestStatus = "approved"
	JoinRejected JoinRequestStatus = "rejected"
)

// JoinRequest is a self-service application to join the team.
type JoinRequest struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	FullName        string            `json:"full_name,omitempty"`
	Message         string            `json:"message,omitempty"`
	Status          JoinRequestStatus `json:"status"`
	ApprovedBy      string            `json:"approved_by,omitempty"`
	RejectedBy      string            `json:"rejected_by,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewJoinRequest validates the applicant's input.
func NewJoinRequest(email, fullName, message string, now time.Time) (*JoinRequest, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return &JoinRequest{
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		Message:   strings.TrimSpace(message),
		Status:    JoinPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (j *JoinRequest) Approve(admin *User, now time.Time) error {
	if err := j.checkResolvable(admin); err != nil {
		return err
	}
	j.Status = JoinApproved
	j.ApprovedBy = admin.ID
	j.UpdatedAt = now
	return nil
}

func (j *JoinRequest) Reject(admin *User, reason string, now time.Time) error {
	if err := j.checkResolvable(admin); err != nil {
		return err
	}
	j.Status = JoinRejected
	j.RejectedBy = admin.ID
	j.RejectionReason = strings.TrimSpace(reason)
	j.UpdatedAt = now
	return nil
}

func (j *JoinRequest) checkResolvable(admin *User) error {
	if admin == nil || !admin.IsActive() || !admin.IsAdmin() {
		return ErrAdminRequired
	}
	if j.Status != JoinPending {
		return ErrJoinResolved
	}
	return nil
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation lets an admin bring a member in by email.
type Invitation struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Role       string           `json:"role"`
	Token      string           `json:"token"`
	InvitedBy  string           `json:"invited_by"`
	Status     InvitationStatus `json:"status"`
	ExpiresAt  time.Time        `json:"expires_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewInvitation always grants the member role; admin rights go through promotion.
func NewInvitation(admin *User, email string, ttl time.Duration, now time.Time) (*Invitation, error) {
	if admin == nil || !admin.IsActive() || !admin.IsAdmin() {
		return nil, ErrAdminRequired
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	return &Invitation{
		Email:     email,
		Role:      RoleMember,
		Token:     uuid.NewString(),
		InvitedBy: admin.ID,
		Status:    InvitationPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// Redeem consumes the invitation and returns the profile to create.
func (i *Invitation) Redeem(userID, fullName string, now time.Time) (*User, error) {
	if i.Status != InvitationPending {
		return nil, ErrInvitationUsed
	}
	if !now.Before(i.ExpiresAt) {
		return nil, ErrInvitationExpired
	}
	if userID == "" {
		return nil, ErrInvalidPayload
	}
	i.Status = InvitationAccepted
	i.AcceptedAt = timePtr(now)
	return &User{
		ID:        userID,
		Email:     i.Email,
		FullName:  strings.TrimSpace(fullName),
		Role:      i.Role,
		Status:    UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
