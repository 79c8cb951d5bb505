package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ClientStatus string

const (
	ClientOnboarding ClientStatus = "onboarding"
	ClientInProgress ClientStatus = "in_progress"
	ClientWaiting    ClientStatus = "waiting"
	ClientDelivered  ClientStatus = "delivered"
	ClientClosed     ClientStatus = "closed"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientOnboarding, ClientInProgress, ClientWaiting, ClientDelivered, ClientClosed:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// Client is a customer project, usually derived from a converted lead.
type Client struct {
	ID            string          `json:"id"`
	LeadID        *string         `json:"lead_id,omitempty"`
	BusinessName  string          `json:"business_name"`
	OwnerName     string          `json:"owner_name,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Address       string          `json:"address,omitempty"`
	Services      []string        `json:"services"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	DeliveryDate  *time.Time      `json:"delivery_date,omitempty"`
	DeliveredBy   string          `json:"delivered_by,omitempty"`
	Status        ClientStatus    `json:"status"`
	DeliveryNotes string          `json:"delivery_notes,omitempty"`
	ProjectValue  decimal.Decimal `json:"project_value"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (c *Client) IsDelivered() bool {
	return c != nil && (c.Status == ClientDelivered || c.Status == ClientClosed)
}

// Normalize validates a standalone client and fills defaults.
func (c *Client) Normalize(now time.Time) error {
	c.BusinessName = strings.TrimSpace(c.BusinessName)
	if c.BusinessName == "" {
		return ErrClientNameRequired
	}
	if c.Status == "" {
		c.Status = ClientOnboarding
	}
	if !c.Status.Valid() {
		return ErrClientStatus
	}
	if c.PaymentStatus == "" {
		c.PaymentStatus = PaymentPending
	}
	if !c.PaymentStatus.Valid() {
		return ErrPaymentStatus
	}
	if c.Services == nil {
		c.Services = []string{}
	}
	if err := checkAmounts(c.ProjectValue, c.PaidAmount); err != nil {
		return err
	}
	if c.StartDate == nil {
		start := truncateDay(now)
		c.StartDate = &start
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return nil
}

// SetStatus changes the workflow status. Delivery goes through MarkDelivered so
// that the income snapshot is never skipped.
func (c *Client) SetStatus(status ClientStatus, now time.Time) error {
	if !status.Valid() {
		return ErrClientStatus
	}
	if status == ClientDelivered && c.Status != ClientDelivered {
		return ErrUseDeliver
	}
	c.Status = status
	c.UpdatedAt = now
	return nil
}

// ApplyFinancials sets value and payment state: paid settles in full, partial
// takes the given amount, pending resets to zero.
func (c *Client) ApplyFinancials(value decimal.Decimal, status PaymentStatus, partial decimal.Decimal, now time.Time) error {
	if status == "" {
		status = c.PaymentStatus
	}
	if !status.Valid() {
		return ErrPaymentStatus
	}
	var paid decimal.Decimal
	switch status {
	case PaymentPaid:
		paid = value
	case PaymentPartial:
		paid = partial
	default:
		paid = decimal.Zero
	}
	if err := checkAmounts(value, paid); err != nil {
		return err
	}
	c.ProjectValue = value
	c.PaymentStatus = status
	c.PaidAmount = paid
	if status == PaymentPaid {
		c.PaymentDate = timePtr(now)
	}
	c.UpdatedAt = now
	return nil
}

// MarkDelivered stamps delivery. The caller must persist the returned income
// snapshot in the same transaction.
func (c *Client) MarkDelivered(actor *User, lead *Lead, now time.Time) (*IncomeRecord, error) {
	if actor == nil || !actor.IsActive() {
		return nil, ErrUnauthorized
	}
	if c.IsDelivered() {
		return nil, ErrAlreadyDelivered
	}
	if !c.ProjectValue.IsPositive() {
		return nil, ErrProjectValueMissing
	}
	c.Status = ClientDelivered
	c.DeliveryDate = timePtr(now)
	c.DeliveredBy = actor.ID
	c.UpdatedAt = now
	return c.snapshot(lead, now), nil
}

func (c *Client) snapshot(lead *Lead, now time.Time) *IncomeRecord {
	clientID := c.ID
	record := &IncomeRecord{
		ClientID:         &clientID,
		BusinessName:     c.BusinessName,
		OwnerName:        c.OwnerName,
		Phone:            c.Phone,
		Services:         append([]string{}, c.Services...),
		ProjectValue:     c.ProjectValue,
		PaidAmount:       c.PaidAmount,
		PaymentStatus:    c.PaymentStatus,
		PaymentDate:      c.PaymentDate,
		DeliveryDate:     c.DeliveryDate,
		DeliveredBy:      c.DeliveredBy,
		Notes:            c.DeliveryNotes,
		ProjectStartDate: c.StartDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if lead != nil {
		record.LeadSource = lead.Source
		record.BusinessCategory = lead.BusinessCategory
	}
	return record
}

// NewProject opens a fresh onboarding project for the same customer.
func (c *Client) NewProject(services []string, value decimal.Decimal, now time.Time) (*Client, error) {
	if value.IsNegative() {
		return nil, ErrNegativeAmount
	}
	cleaned := make([]string, 0, len(services))
	for _, s := range services {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	start := truncateDay(now)
	return &Client{
		LeadID:        copyString(c.LeadID),
		BusinessName:  c.BusinessName,
		OwnerName:     c.OwnerName,
		Phone:         c.Phone,
		Address:       c.Address,
		Services:      cleaned,
		StartDate:     &start,
		Status:        ClientOnboarding,
		ProjectValue:  value,
		PaymentStatus: PaymentPending,
		PaidAmount:    decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func checkAmounts(value, paid decimal.Decimal) error {
	if value.IsNegative() || paid.IsNegative() {
		return ErrNegativeAmount
	}
	if paid.GreaterThan(value) {
		return ErrPaidExceedsValue
	}
	return nil
}

// IncomeRecord is the financial snapshot taken when a client is delivered. It
// keeps a soft reference to the client and survives the client's deletion.
type IncomeRecord struct {
	ID               string          `json:"id"`
	ClientID         *string         `json:"client_id,omitempty"`
	BusinessName     string          `json:"business_name"`
	OwnerName        string          `json:"owner_name,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	Services         []string        `json:"services"`
	ProjectValue     decimal.Decimal `json:"project_value"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	DeliveryDate     *time.Time      `json:"delivery_date,omitempty"`
	DeliveredBy      string          `json:"delivered_by,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	LeadSource       string          `json:"lead_source,omitempty"`
	BusinessCategory string          `json:"business_category,omitempty"`
	ProjectStartDate *time.Time      `json:"project_start_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// RecordedAt is the date used to bucket a record into reporting periods.
func (r *IncomeRecord) RecordedAt() time.Time {
	if r.DeliveryDate != nil {
		return *r.DeliveryDate
	}
	return r.CreatedAt
}
