package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/repository/memory"
)

func newUseCase(t *testing.T, now time.Time) (*UseCase, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.AddUser(domain.User{ID: "a1", Role: domain.RoleAdmin, Status: domain.UserStatusActive})
	store.AddUser(domain.User{ID: "m1", Role: domain.RoleMember, Status: domain.UserStatusActive})
	uc := New(store.Income(), store.Clients(), store.Users(), func() time.Time { return now }, nil, nil)
	return uc, store
}

func seedIncome(t *testing.T, store *memory.Store, value, paid string, status domain.PaymentStatus, delivered time.Time) {
	t.Helper()
	require.NoError(t, store.Income().Create(context.Background(), &domain.IncomeRecord{
		BusinessName:  "biz",
		ProjectValue:  decimal.RequireFromString(value),
		PaidAmount:    decimal.RequireFromString(paid),
		PaymentStatus: status,
		DeliveryDate:  &delivered,
		CreatedAt:     delivered,
	}))
}

func TestSummaryRequiresAdmin(t *testing.T) {
	uc, _ := newUseCase(t, time.Now())

	_, err := uc.Summary(context.Background(), "m1", domain.ReportQuery{})
	require.ErrorIs(t, err, domain.ErrAdminRequired)
}

func TestSummaryAggregates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	uc, store := newUseCase(t, now)

	seedIncome(t, store, "1000", "1000", domain.PaymentPaid, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	seedIncome(t, store, "500", "200", domain.PaymentPartial, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))
	seedIncome(t, store, "300", "0", domain.PaymentPending, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Clients().Create(ctx, &domain.Client{BusinessName: "open", Status: domain.ClientInProgress}))
	require.NoError(t, store.Clients().Create(ctx, &domain.Client{BusinessName: "done", Status: domain.ClientDelivered}))

	report, err := uc.Summary(ctx, "a1", domain.ReportQuery{Period: domain.PeriodThisMonth})
	require.NoError(t, err)

	assert.Equal(t, 3, report.CompletedProjects)
	assert.True(t, report.TotalRevenue.Equal(decimal.NewFromInt(1800)))
	assert.True(t, report.TotalPaid.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, 1, report.PeriodProjects)
	assert.True(t, report.ThisMonthRevenue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, report.LastMonthRevenue.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, report.OpenProjects)
	assert.Equal(t, 1, report.PaidProjects)
	assert.Equal(t, 1, report.PartialProjects)
	assert.Equal(t, 1, report.PendingProjects)
}

func TestSummarizeRejectsBadMonth(t *testing.T) {
	uc, _ := newUseCase(t, time.Now())

	_, err := uc.Summarize(context.Background(), domain.ReportQuery{Period: domain.PeriodSpecificMonth, Month: 13, Year: 2024})
	require.ErrorIs(t, err, domain.ErrReportPeriod)
}

type failingIncome struct {
	repository.IncomeRepository
}

func (failingIncome) List(context.Context, repository.IncomeFilter) ([]domain.IncomeRecord, error) {
	return nil, errors.New("connection reset")
}

func TestSummarizePropagatesLoadErrors(t *testing.T) {
	store := memory.New()
	uc := New(failingIncome{}, store.Clients(), store.Users(), nil, time.UTC, nil)

	_, err := uc.Summarize(context.Background(), domain.ReportQuery{Period: domain.PeriodAllTime})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list income records")
}
