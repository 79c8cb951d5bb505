package transport

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm/domain"
)

func TestDecodeValidPayload(t *testing.T) {
	var req TaskCreateRequest
	err := Decode([]byte(`{"title":"Call Ana","assigned_to":"u2","due_date":"2024-05-01T10:00:00Z","priority":"high"}`), &req)
	require.NoError(t, err)

	draft := req.Draft()
	assert.Equal(t, "Call Ana", draft.Title)
	assert.Equal(t, domain.PriorityHigh, draft.Priority)
	assert.False(t, draft.DueDate.IsZero())
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		dst  any
	}{
		{"malformed json", `{`, &CommentRequest{}},
		{"missing comment", `{}`, &CommentRequest{}},
		{"bad email", `{"email":"nope"}`, &JoinRequestSubmit{}},
		{"unknown priority", `{"title":"x","assigned_to":"u","due_date":"2024-05-01T10:00:00Z","priority":"asap"}`, &TaskCreateRequest{}},
		{"both relations", `{"title":"x","assigned_to":"u","due_date":"2024-05-01T10:00:00Z","related_lead_id":"l","related_client_id":"c"}`, &TaskCreateRequest{}},
		{"converted status", `{"name":"Ana","status":"converted"}`, &LeadRequest{}},
		{"vote without decision", `{}`, &VoteRequest{}},
		{"call done without date", `{"comment":"spoke"}`, &CallDoneRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode([]byte(tt.body), tt.dst)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestClientRequestDecimal(t *testing.T) {
	var req ClientRequest
	require.NoError(t, Decode([]byte(`{"business_name":"Acme","project_value":"1500.50","payment_status":"partial","paid_amount":500}`), &req))

	c := req.Client()
	assert.True(t, c.ProjectValue.Equal(decimal.RequireFromString("1500.50")))
	assert.True(t, c.PaidAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, domain.PaymentPartial, c.PaymentStatus)
}
