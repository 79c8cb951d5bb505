package finance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/usecase"
)

// Report bundles the summary with the live client pipeline value.
type Report struct {
	domain.FinanceSummary
	OpenProjects int `json:"open_projects"`
}

type UseCase struct {
	income   repository.IncomeRepository
	clients  repository.ClientRepository
	users    repository.UserRepository
	clock    usecase.Clock
	location *time.Location
	logger   *zap.Logger
}

// New builds the reporting use case. Periods are evaluated in loc (UTC when nil).
func New(
	income repository.IncomeRepository,
	clients repository.ClientRepository,
	users repository.UserRepository,
	clock usecase.Clock,
	loc *time.Location,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &UseCase{
		income:   income,
		clients:  clients,
		users:    users,
		clock:    clock,
		location: loc,
		logger:   logger,
	}
}

// Summary is the admin dashboard entry point.
func (uc *UseCase) Summary(ctx context.Context, actorID string, q domain.ReportQuery) (*Report, error) {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.Summarize(ctx, q)
}

// Summarize loads income records and open clients concurrently and aggregates them.
func (uc *UseCase) Summarize(ctx context.Context, q domain.ReportQuery) (*Report, error) {
	var (
		records []domain.IncomeRecord
		clients []domain.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = uc.income.List(gctx, repository.IncomeFilter{})
		if err != nil {
			return fmt.Errorf("list income records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		clients, err = uc.clients.List(gctx, repository.ClientFilter{})
		if err != nil {
			return fmt.Errorf("list clients: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := domain.Summarize(records, q, uc.clock.Now().In(uc.location))
	if err != nil {
		return nil, err
	}
	report := &Report{FinanceSummary: summary}
	for i := range clients {
		if !clients[i].IsDelivered() {
			report.OpenProjects++
		}
	}
	uc.logger.Debug("finance summary computed",
		zap.String("period", string(summary.Period)),
		zap.Int("records", summary.PeriodProjects))
	return report, nil
}
