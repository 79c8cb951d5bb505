package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fastygo/crm/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode unmarshals body into dst and runs its validation tags.
func Decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return domain.WrapError(domain.ErrCodeInvalid, strings.Join(fields, "; "), err)
		}
		return domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err)
	}
	return nil
}

type AuthLoginRequest struct {
	UserID string `json:"user_id" validate:"required"`
	TTL    int    `json:"ttl_seconds" validate:"gte=0"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	TTL       int    `json:"ttl_seconds" validate:"gte=0"`
}

type ProfileUpdateRequest struct {
	FullName  *string           `json:"full_name" validate:"omitempty,max=200"`
	AvatarURL *string           `json:"avatar_url" validate:"omitempty,url"`
	Metadata  map[string]string `json:"metadata"`
}

type DeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

type TaskCreateRequest struct {
	Title                 string    `json:"title" validate:"required,max=300"`
	Description           string    `json:"description"`
	AssignedTo            string    `json:"assigned_to" validate:"required"`
	RelatedLeadID         *string   `json:"related_lead_id" validate:"excluded_with=RelatedClientID"`
	RelatedClientID       *string   `json:"related_client_id"`
	DueDate               time.Time `json:"due_date" validate:"required"`
	Type                  string    `json:"type" validate:"omitempty,oneof=task revision review delivery"`
	Priority              string    `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	ReminderIntervalHours int       `json:"reminder_interval_hours" validate:"gte=0"`
	MaxReminders          int       `json:"max_reminders" validate:"gte=0"`
}

func (r TaskCreateRequest) Draft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:                 r.Title,
		Description:           r.Description,
		AssignedTo:            r.AssignedTo,
		RelatedLeadID:         r.RelatedLeadID,
		RelatedClientID:       r.RelatedClientID,
		DueDate:               r.DueDate,
		Type:                  domain.TaskType(r.Type),
		Priority:              domain.Priority(r.Priority),
		ReminderIntervalHours: r.ReminderIntervalHours,
		MaxReminders:          r.MaxReminders,
	}
}

type DeclineRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type CompleteRequest struct {
	Note string `json:"completion_note" validate:"max=4000"`
}

type CommentRequest struct {
	Comment string `json:"comment" validate:"required,max=4000"`
}

type LeadRequest struct {
	Name             string     `json:"name" validate:"required,max=200"`
	Phone            string     `json:"phone" validate:"max=50"`
	Email            string     `json:"email" validate:"omitempty,email"`
	Address          string     `json:"address"`
	BusinessName     string     `json:"business_name"`
	BusinessCategory string     `json:"business_category"`
	Source           string     `json:"source"`
	AssignedTo       string     `json:"assigned_to"`
	Status           string     `json:"status" validate:"omitempty,oneof=not_interested not_sure interested"`
	Priority         string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	InterestLevel    int        `json:"interest_level" validate:"gte=0,lte=100"`
	NextFollowUp     *time.Time `json:"next_follow_up"`
}

func (r LeadRequest) Lead() *domain.Lead {
	return &domain.Lead{
		Name:             r.Name,
		Phone:            r.Phone,
		Email:            r.Email,
		Address:          r.Address,
		BusinessName:     r.BusinessName,
		BusinessCategory: r.BusinessCategory,
		Source:           r.Source,
		AssignedTo:       r.AssignedTo,
		Status:           domain.LeadStatus(r.Status),
		Priority:         domain.Priority(r.Priority),
		InterestLevel:    r.InterestLevel,
		NextFollowUp:     r.NextFollowUp,
	}
}

type LeadPatchRequest struct {
	Name             *string    `json:"name" validate:"omitempty,max=200"`
	Phone            *string    `json:"phone" validate:"omitempty,max=50"`
	Email            *string    `json:"email" validate:"omitempty,email"`
	Address          *string    `json:"address"`
	BusinessName     *string    `json:"business_name"`
	BusinessCategory *string    `json:"business_category"`
	Source           *string    `json:"source"`
	AssignedTo       *string    `json:"assigned_to"`
	Status           *string    `json:"status" validate:"omitempty,oneof=not_interested not_sure interested"`
	Priority         *string    `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	InterestLevel    *int       `json:"interest_level" validate:"omitempty,gte=0,lte=100"`
	NextFollowUp     *time.Time `json:"next_follow_up"`
}

type CallLogRequest struct {
	Outcome       string     `json:"outcome" validate:"omitempty,oneof=no_response call_back interested not_interested"`
	Summary       string     `json:"summary" validate:"required"`
	InterestLevel *int       `json:"interest_level" validate:"omitempty,gte=0,lte=100"`
	NextFollowUp  *time.Time `json:"next_follow_up"`
}

func (r CallLogRequest) Entry() domain.CallLog {
	return domain.CallLog{
		Outcome:       domain.CallOutcome(r.Outcome),
		Summary:       r.Summary,
		InterestLevel: r.InterestLevel,
		NextFollowUp:  r.NextFollowUp,
	}
}

type CallDoneRequest struct {
	Comment  string     `json:"comment" validate:"required"`
	NextCall *time.Time `json:"next_call" validate:"required"`
}

type ClientRequest struct {
	BusinessName  string          `json:"business_name" validate:"required,max=200"`
	OwnerName     string          `json:"owner_name"`
	Phone         string          `json:"phone" validate:"max=50"`
	Address       string          `json:"address"`
	Services      []string        `json:"services" validate:"dive,required"`
	StartDate     *time.Time      `json:"start_date"`
	ProjectValue  decimal.Decimal `json:"project_value"`
	PaymentStatus string          `json:"payment_status" validate:"omitempty,oneof=pending partial paid"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

func (r ClientRequest) Client() *domain.Client {
	return &domain.Client{
		BusinessName:  r.BusinessName,
		OwnerName:     r.OwnerName,
		Phone:         r.Phone,
		Address:       r.Address,
		Services:      r.Services,
		StartDate:     r.StartDate,
		ProjectValue:  r.ProjectValue,
		PaymentStatus: domain.PaymentStatus(r.PaymentStatus),
		PaidAmount:    r.PaidAmount,
	}
}

type ClientStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=onboarding in_progress waiting delivered closed"`
}

type FinancialsRequest struct {
	ProjectValue  decimal.Decimal `json:"project_value"`
	PaymentStatus string          `json:"payment_status" validate:"omitempty,oneof=pending partial paid"`
	PartialAmount decimal.Decimal `json:"partial_amount"`
}

type DeliverRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

type NewProjectRequest struct {
	Services     []string        `json:"services" validate:"dive,required"`
	ProjectValue decimal.Decimal `json:"project_value"`
}

type PromotionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type VoteRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

type JoinRequestSubmit struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=200"`
	Message  string `json:"message" validate:"max=2000"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type InvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AcceptInvitationRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	FullName string `json:"full_name" validate:"max=200"`
}

// ParseReportQuery builds a finance query from raw period, month and year values.
func ParseReportQuery(period, month, year string) (domain.ReportQuery, error) {
	q := domain.ReportQuery{Period: domain.ReportPeriod(period)}
	if month != "" {
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return q, domain.ErrReportPeriod
		}
		q.Month = time.Month(m)
	}
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil || y < 1970 {
			return q, domain.ErrReportPeriod
		}
		q.Year = y
	}
	return q, nil
}
