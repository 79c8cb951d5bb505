package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClientNormalize(t *testing.T) {
	c := &Client{BusinessName: "  Bob's Bikes "}
	require.NoError(t, c.Normalize(testNow))
	assert.Equal(t, "Bob's Bikes", c.BusinessName)
	assert.Equal(t, ClientOnboarding, c.Status)
	assert.Equal(t, PaymentPending, c.PaymentStatus)
	require.NotNil(t, c.StartDate)
	assert.True(t, c.StartDate.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.NotNil(t, c.Services)

	tests := []struct {
		name   string
		client Client
		want   error
	}{
		{"missing name", Client{}, ErrClientNameRequired},
		{"bad status", Client{BusinessName: "x", Status: "lost"}, ErrClientStatus},
		{"bad payment", Client{BusinessName: "x", PaymentStatus: "overdue"}, ErrPaymentStatus},
		{"negative value", Client{BusinessName: "x", ProjectValue: dec("-1")}, ErrNegativeAmount},
		{"overpaid", Client{BusinessName: "x", ProjectValue: dec("100"), PaidAmount: dec("100.01")}, ErrPaidExceedsValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.client
			assert.ErrorIs(t, c.Normalize(testNow), tc.want)
		})
	}
}

func TestClientSetStatus(t *testing.T) {
	c := &Client{Status: ClientOnboarding}
	require.NoError(t, c.SetStatus(ClientInProgress, testNow))
	assert.Equal(t, ClientInProgress, c.Status)
	assert.ErrorIs(t, c.SetStatus(ClientDelivered, testNow), ErrUseDeliver)
	assert.ErrorIs(t, c.SetStatus("archived", testNow), ErrClientStatus)
}

func TestApplyFinancials(t *testing.T) {
	tests := []struct {
		name     string
		status   PaymentStatus
		value    string
		partial  string
		wantPaid string
		wantErr  error
	}{
		{"paid settles in full", PaymentPaid, "1500.00", "0", "1500.00", nil},
		{"partial keeps amount", PaymentPartial, "1500.00", "500.25", "500.25", nil},
		{"pending resets", PaymentPending, "1500.00", "900", "0", nil},
		{"partial over value", PaymentPartial, "100", "150", "", ErrPaidExceedsValue},
		{"negative value", PaymentPaid, "-5", "0", "", ErrNegativeAmount},
		{"unknown status", "later", "100", "0", "", ErrPaymentStatus},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Client{PaymentStatus: PaymentPending}
			err := c.ApplyFinancials(dec(tc.value), tc.status, dec(tc.partial), testNow)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.PaidAmount.Equal(dec(tc.wantPaid)), c.PaidAmount.String())
			assert.Equal(t, tc.status, c.PaymentStatus)
			assert.Equal(t, tc.status == PaymentPaid, c.PaymentDate != nil)
		})
	}
}

func TestMarkDelivered(t *testing.T) {
	leadID := "l1"
	c := &Client{
		ID:            "c1",
		LeadID:        &leadID,
		BusinessName:  "Bob's Bikes",
		Services:      []string{"website"},
		Status:        ClientInProgress,
		PaymentStatus: PaymentPartial,
		PaidAmount:    dec("200"),
	}
	lead := &Lead{ID: "l1", Source: "referral", BusinessCategory: "retail"}

	_, err := c.MarkDelivered(member("m1"), lead, testNow)
	assert.ErrorIs(t, err, ErrProjectValueMissing)

	_, err = c.MarkDelivered(nil, lead, testNow)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c.ProjectValue = dec("1000")
	rec, err := c.MarkDelivered(member("m1"), lead, testNow)
	require.NoError(t, err)
	assert.Equal(t, ClientDelivered, c.Status)
	assert.Equal(t, "m1", c.DeliveredBy)
	require.NotNil(t, rec)
	assert.Equal(t, "c1", *rec.ClientID)
	assert.True(t, rec.ProjectValue.Equal(dec("1000")))
	assert.True(t, rec.PaidAmount.Equal(dec("200")))
	assert.Equal(t, "referral", rec.LeadSource)
	assert.Equal(t, "retail", rec.BusinessCategory)
	assert.True(t, rec.RecordedAt().Equal(testNow))

	// the snapshot does not share the client's slice
	rec.Services[0] = "changed"
	assert.Equal(t, "website", c.Services[0])

	_, err = c.MarkDelivered(member("m1"), lead, testNow)
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}

func TestNewProject(t *testing.T) {
	leadID := "l1"
	c := &Client{ID: "c1", LeadID: &leadID, BusinessName: "Bob's Bikes", OwnerName: "Bob", Status: ClientDelivered}

	_, err := c.NewProject(nil, dec("-1"), testNow)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	next, err := c.NewProject([]string{" seo ", "", "ads"}, dec("800"), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"seo", "ads"}, next.Services)
	assert.Equal(t, ClientOnboarding, next.Status)
	assert.Equal(t, PaymentPending, next.PaymentStatus)
	assert.Equal(t, "Bob's Bikes", next.BusinessName)
	assert.Empty(t, next.ID)
	require.NotNil(t, next.LeadID)
	assert.NotSame(t, c.LeadID, next.LeadID)
}
