package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeState        ErrorCode = "STATE"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Lookup failures.
var (
	ErrUserNotFound        = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound        = NewError(ErrCodeNotFound, "task not found")
	ErrCommentNotFound     = NewError(ErrCodeNotFound, "comment not found")
	ErrLeadNotFound        = NewError(ErrCodeNotFound, "lead not found")
	ErrClientNotFound      = NewError(ErrCodeNotFound, "client not found")
	ErrIncomeNotFound      = NewError(ErrCodeNotFound, "income record not found")
	ErrPromotionNotFound   = NewError(ErrCodeNotFound, "promotion request not found")
	ErrJoinRequestNotFound = NewError(ErrCodeNotFound, "join request not found")
	ErrInvitationNotFound  = NewError(ErrCodeNotFound, "invitation not found")
	ErrSessionNotFound     = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized        = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload      = NewError(ErrCodeInvalid, "invalid payload")
)

// Permission failures.
var (
	ErrPermissionDenied = NewError(ErrCodeForbidden, "permission denied")
	ErrNotAssignee      = NewError(ErrCodeForbidden, "only the assigned person can respond to this task")
	ErrAdminRequired    = NewError(ErrCodeForbidden, "admin role required")
	ErrCommentHidden    = NewError(ErrCodeForbidden, "comments are visible to admins and the assignee only")
	ErrCommentClosed    = NewError(ErrCodeForbidden, "only the assignee of a completed task can comment")
)

// Task lifecycle failures.
var (
	ErrTaskTitleRequired    = NewError(ErrCodeInvalid, "task title is required")
	ErrTaskAssigneeRequired = NewError(ErrCodeInvalid, "task assignee is required")
	ErrTaskDueRequired      = NewError(ErrCodeInvalid, "task due date is required")
	ErrTaskRelation         = NewError(ErrCodeInvalid, "a task may relate to a lead or a client, not both")
	ErrTaskType             = NewError(ErrCodeInvalid, "unknown task type")
	ErrPriority             = NewError(ErrCodeInvalid, "unknown priority")
	ErrTaskNotAccepted      = NewError(ErrCodeState, "task not accepted: accept the task before starting")
	ErrTaskDeclined         = NewError(ErrCodeState, "task declined: it cannot be started or completed")
	ErrAcceptanceResolved   = NewError(ErrCodeState, "task acceptance already resolved")
	ErrTaskWrongState       = NewError(ErrCodeState, "task is not in the required state")
	ErrRevisionNotCompleted = NewError(ErrCodeState, "revisions can only be requested on completed tasks")
	ErrTaskTimeline         = NewError(ErrCodeInvalid, "task timestamps are out of order")
	ErrCommentRequired      = NewError(ErrCodeInvalid, "comment is required")
)

// Lead scheduler failures.
var (
	ErrLeadNameRequired = NewError(ErrCodeInvalid, "lead name is required")
	ErrSummaryRequired  = NewError(ErrCodeInvalid, "call summary is required")
	ErrNextCallRequired = NewError(ErrCodeInvalid, "next call date is required")
	ErrCallOutcome      = NewError(ErrCodeInvalid, "unknown call outcome")
	ErrInterestLevel    = NewError(ErrCodeInvalid, "interest level must be between 0 and 100")
	ErrLeadStatus       = NewError(ErrCodeInvalid, "unknown lead status")
	ErrLeadConverted    = NewError(ErrCodeState, "lead is already converted")
)

// Client and finance failures.
var (
	ErrClientNameRequired  = NewError(ErrCodeInvalid, "business name is required")
	ErrClientStatus        = NewError(ErrCodeInvalid, "unknown client status")
	ErrPaymentStatus       = NewError(ErrCodeInvalid, "unknown payment status")
	ErrNegativeAmount      = NewError(ErrCodeInvalid, "amounts cannot be negative")
	ErrPaidExceedsValue    = NewError(ErrCodeInvalid, "paid amount cannot exceed project value")
	ErrProjectValueMissing = NewError(ErrCodeInvalid, "set the project value before marking as delivered")
	ErrUseDeliver          = NewError(ErrCodeInvalid, "use the deliver action to mark a client delivered")
	ErrAlreadyDelivered    = NewError(ErrCodeState, "client is already delivered")
	ErrReportPeriod        = NewError(ErrCodeInvalid, "unknown report period")
)

// Team administration failures.
var (
	ErrPromotionPending  = NewError(ErrCodeConflict, "there's already a pending promotion request for this user")
	ErrAlreadyAdmin      = NewError(ErrCodeConflict, "user is already an admin")
	ErrPromotionResolved = NewError(ErrCodeState, "promotion request is no longer pending")
	ErrJoinRequestExists = NewError(ErrCodeConflict, "a join request for this email is already pending")
	ErrJoinResolved      = NewError(ErrCodeState, "join request already resolved")
	ErrEmailRequired     = NewError(ErrCodeInvalid, "email is required")
	ErrInvitationUsed    = NewError(ErrCodeState, "invitation has already been used")
	ErrInvitationExpired = NewError(ErrCodeState, "invitation has expired")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
