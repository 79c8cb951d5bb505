package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/usecase"
)

// Financials is the input of UpdateFinancials. PartialAmount is read only for partial payments.
type Financials struct {
	ProjectValue  decimal.Decimal
	PaymentStatus domain.PaymentStatus
	PartialAmount decimal.Decimal
}

// Delivery is returned by MarkDelivered.
type Delivery struct {
	Client *domain.Client       `json:"client"`
	Income *domain.IncomeRecord `json:"income"`
}

type UseCase struct {
	clients repository.ClientRepository
	income  repository.IncomeRepository
	leads   repository.LeadRepository
	users   repository.UserRepository
	tx      repository.Transactor
	effects usecase.Effects
	clock   usecase.Clock
	logger  *zap.Logger
}

func New(
	clients repository.ClientRepository,
	income repository.IncomeRepository,
	leads repository.LeadRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	effects usecase.Effects,
	clock usecase.Clock,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if effects.Logger == nil {
		effects.Logger = logger
	}
	return &UseCase{
		clients: clients,
		income:  income,
		leads:   leads,
		users:   users,
		tx:      tx,
		effects: effects,
		clock:   clock,
		logger:  logger,
	}
}

func (uc *UseCase) CreateClient(ctx context.Context, actorID string, c *domain.Client) (*domain.Client, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrInvalidPayload
	}
	now := uc.clock.Now()
	if c.Status == domain.ClientDelivered {
		return nil, domain.ErrUseDeliver
	}
	if err := c.Normalize(now); err != nil {
		return nil, err
	}
	if err := uc.clients.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	uc.logger.Info("client created", zap.String("client_id", c.ID))
	uc.effects.Changed(ctx, clientChange(domain.ChangeInsert, c, now))
	uc.notifyAdmins(ctx, domain.NotificationNewClient, c, actor, now)
	return c, nil
}

func (uc *UseCase) GetClient(ctx context.Context, actorID, id string) (*domain.Client, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.clients.GetByID(ctx, id)
}

func (uc *UseCase) ListClients(ctx context.Context, actorID string, filter repository.ClientFilter) ([]domain.Client, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.clients.List(ctx, filter)
}

func (uc *UseCase) UpdateClientStatus(ctx context.Context, actorID, id string, status domain.ClientStatus) (*domain.Client, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "status updated", func(c *domain.Client, now time.Time) error {
		return c.SetStatus(status, now)
	})
}

func (uc *UseCase) UpdateFinancials(ctx context.Context, actorID, id string, in Financials) (*domain.Client, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "financials updated", func(c *domain.Client, now time.Time) error {
		return c.ApplyFinancials(in.ProjectValue, in.PaymentStatus, in.PartialAmount, now)
	})
}

func (uc *UseCase) mutate(ctx context.Context, id, verb string, fn func(c *domain.Client, now time.Time) error) (*domain.Client, error) {
	now := uc.clock.Now()
	var client *domain.Client
	err := usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		c, err := uc.clients.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(c, now); err != nil {
			return err
		}
		if err := uc.clients.Update(ctx, c); err != nil {
			return fmt.Errorf("update client: %w", err)
		}
		client = c
		return nil
	})
	if err != nil {
		uc.logger.Debug("client update rejected", zap.String("client_id", id), zap.Error(err))
		return nil, err
	}
	uc.logger.Info("client "+verb, zap.String("client_id", client.ID))
	uc.effects.Changed(ctx, clientChange(domain.ChangeUpdate, client, now))
	return client, nil
}

// MarkDelivered stamps delivery and writes the income snapshot in one transaction.
func (uc *UseCase) MarkDelivered(ctx context.Context, actorID, id, notes string) (*Delivery, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var out Delivery
	err = usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		c, err := uc.clients.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		var lead *domain.Lead
		if c.LeadID != nil && *c.LeadID != "" {
			lead, err = uc.leads.GetByID(ctx, *c.LeadID)
			if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return fmt.Errorf("load lead: %w", err)
			}
		}
		if n := strings.TrimSpace(notes); n != "" {
			c.DeliveryNotes = n
		}
		record, err := c.MarkDelivered(actor, lead, now)
		if err != nil {
			return err
		}
		if err := uc.clients.Update(ctx, c); err != nil {
			return fmt.Errorf("update client: %w", err)
		}
		if err := uc.income.Create(ctx, record); err != nil {
			return fmt.Errorf("create income record: %w", err)
		}
		out = Delivery{Client: c, Income: record}
		return nil
	})
	if err != nil {
		uc.logger.Debug("delivery rejected", zap.String("client_id", id), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("client delivered",
		zap.String("client_id", out.Client.ID),
		zap.String("income_id", out.Income.ID),
		zap.String("project_value", out.Income.ProjectValue.String()))
	uc.effects.Changed(ctx,
		clientChange(domain.ChangeUpdate, out.Client, now),
		domain.NewChangeEvent(domain.TableIncome, domain.ChangeInsert, out.Income.ID, out.Income, nil, now),
	)
	return &out, nil
}

// StartNewProject opens a new onboarding project for an existing customer.
func (uc *UseCase) StartNewProject(ctx context.Context, actorID, id string, services []string, value decimal.Decimal) (*domain.Client, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	source, err := uc.clients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	project, err := source.NewProject(services, value, now)
	if err != nil {
		return nil, err
	}
	if err := uc.clients.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	uc.logger.Info("new project started", zap.String("client_id", project.ID), zap.String("source_client_id", source.ID))
	uc.effects.Changed(ctx, clientChange(domain.ChangeInsert, project, now))
	uc.notifyAdmins(ctx, domain.NotificationNewClient, project, actor, now)
	return project, nil
}

// DeleteClient removes the client. Income records keep their soft reference.
func (uc *UseCase) DeleteClient(ctx context.Context, actorID, id string) error {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return err
	}
	c, err := uc.clients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.clients.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("client deleted", zap.String("client_id", id))
	uc.effects.Changed(ctx, clientChange(domain.ChangeDelete, c, uc.clock.Now()))
	return nil
}

func (uc *UseCase) ListIncome(ctx context.Context, actorID string, filter repository.IncomeFilter) ([]domain.IncomeRecord, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.income.List(ctx, filter)
}

func (uc *UseCase) notifyAdmins(ctx context.Context, kind domain.NotificationType, c *domain.Client, actor *domain.User, now time.Time) {
	admins, err := usecase.AdminIDs(ctx, uc.users)
	if err != nil {
		uc.logger.Warn("admin lookup failed", zap.Error(err))
		return
	}
	intents := make([]domain.NotificationIntent, 0, len(admins))
	for _, id := range admins {
		if id == actor.ID {
			continue
		}
		intents = append(intents, domain.ClientIntent(kind, c, actor, id, now))
	}
	uc.effects.Notify(ctx, intents...)
}

func clientChange(kind domain.ChangeType, c *domain.Client, now time.Time) domain.ChangeEvent {
	return domain.NewChangeEvent(domain.TableClients, kind, c.ID, c, map[string]string{
		"status":         string(c.Status),
		"payment_status": string(c.PaymentStatus),
	}, now)
}
