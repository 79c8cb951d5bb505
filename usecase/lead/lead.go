package lead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/usecase"
)

// Config holds the scheduler constants.
type Config struct {
	NoResponseRetry time.Duration
}

// Detail is a lead with its activity log and read-time classification.
type Detail struct {
	domain.Lead
	View domain.LeadView `json:"view"`
}

// Page is the pipeline screen payload.
type Page struct {
	Leads   []domain.ClassifiedLead `json:"leads"`
	Summary domain.LeadSummary      `json:"summary"`
}

// Patch carries editable lead fields; nil means unchanged.
type Patch struct {
	Name             *string
	Phone            *string
	Email            *string
	Address          *string
	BusinessName     *string
	BusinessCategory *string
	Source           *string
	AssignedTo       *string
	Status           *domain.LeadStatus
	Priority         *domain.Priority
	InterestLevel    *int
	NextFollowUp     *time.Time
}

type UseCase struct {
	leads   repository.LeadRepository
	clients repository.ClientRepository
	users   repository.UserRepository
	tx      repository.Transactor
	effects usecase.Effects
	clock   usecase.Clock
	cfg     Config
	logger  *zap.Logger
}

func New(
	leads repository.LeadRepository,
	clients repository.ClientRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	effects usecase.Effects,
	clock usecase.Clock,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NoResponseRetry <= 0 {
		cfg.NoResponseRetry = 24 * time.Hour
	}
	if effects.Logger == nil {
		effects.Logger = logger
	}
	return &UseCase{
		leads:   leads,
		clients: clients,
		users:   users,
		tx:      tx,
		effects: effects,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

func (uc *UseCase) CreateLead(ctx context.Context, actorID string, lead *domain.Lead) (*domain.Lead, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrInvalidPayload
	}
	now := uc.clock.Now()
	if err := lead.Normalize(now); err != nil {
		return nil, err
	}
	if err := uc.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	uc.logger.Info("lead created", zap.String("lead_id", lead.ID))
	uc.effects.Changed(ctx, leadChange(domain.ChangeInsert, lead, now))
	return lead, nil
}

func (uc *UseCase) GetLead(ctx context.Context, actorID, id string) (*Detail, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	lead, err := uc.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Notes, err = uc.leads.ListNotes(ctx, id); err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	return &Detail{Lead: *lead, View: domain.ClassifyLead(lead, uc.clock.Now())}, nil
}

// History returns the lead's activity log, oldest first.
func (uc *UseCase) History(ctx context.Context, actorID, id string) ([]domain.LeadNote, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	if _, err := uc.leads.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.leads.ListNotes(ctx, id)
}

// ListLeads returns the active pipeline, classified, filtered and sorted, plus counters.
func (uc *UseCase) ListLeads(ctx context.Context, actorID string, filter domain.LeadListFilter) (*Page, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	leads, err := uc.leads.List(ctx, repository.LeadFilter{})
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	now := uc.clock.Now()
	return &Page{
		Leads:   domain.FilterLeads(leads, filter, now),
		Summary: domain.SummarizeLeads(leads, now),
	}, nil
}

// DueLeads lists leads that need a call now, most urgent first.
func (uc *UseCase) DueLeads(ctx context.Context) ([]domain.ClassifiedLead, error) {
	leads, err := uc.leads.List(ctx, repository.LeadFilter{})
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return domain.FilterLeads(leads, domain.LeadListFilter{CallStatus: domain.CallStatusPending}, uc.clock.Now()), nil
}

func (uc *UseCase) UpdateLead(ctx context.Context, actorID, id string, patch Patch) (*domain.Lead, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "updated", func(l *domain.Lead, now time.Time) (*domain.LeadNote, error) {
		if err := patch.apply(l); err != nil {
			return nil, err
		}
		return nil, l.Normalize(now)
	})
}

func (uc *UseCase) DeleteLead(ctx context.Context, actorID, id string) error {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return err
	}
	lead, err := uc.leads.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.leads.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("lead deleted", zap.String("lead_id", id))
	uc.effects.Changed(ctx, leadChange(domain.ChangeDelete, lead, uc.clock.Now()))
	return nil
}

func (uc *UseCase) LogCall(ctx context.Context, actorID, id string, entry domain.CallLog) (*domain.Lead, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "call logged", func(l *domain.Lead, now time.Time) (*domain.LeadNote, error) {
		note, err := l.LogCall(entry, now)
		return authored(note, actor), err
	})
}

func (uc *UseCase) MarkCallDone(ctx context.Context, actorID, id, comment string, nextCall *time.Time) (*domain.Lead, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "call done", func(l *domain.Lead, now time.Time) (*domain.LeadNote, error) {
		note, err := l.MarkCallDone(comment, nextCall, now)
		return authored(note, actor), err
	})
}

func (uc *UseCase) QuickMarkCalled(ctx context.Context, actorID, id string) (*domain.Lead, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "marked called", func(l *domain.Lead, now time.Time) (*domain.LeadNote, error) {
		l.QuickMarkCalled(now)
		return nil, nil
	})
}

func (uc *UseCase) NoResponse(ctx context.Context, actorID, id string) (*domain.Lead, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, id, "no response", func(l *domain.Lead, now time.Time) (*domain.LeadNote, error) {
		note := l.NoResponse(now, uc.cfg.NoResponseRetry)
		return authored(note, actor), nil
	})
}

// mutate applies fn to the locked lead and persists it together with the note fn returns.
func (uc *UseCase) mutate(
	ctx context.Context,
	id, verb string,
	fn func(l *domain.Lead, now time.Time) (*domain.LeadNote, error),
) (*domain.Lead, error) {
	now := uc.clock.Now()
	var lead *domain.Lead
	err := usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		l, err := uc.leads.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if l.IsConverted() {
			return domain.ErrLeadConverted
		}
		note, err := fn(l, now)
		if err != nil {
			return err
		}
		if err := uc.leads.Update(ctx, l); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		if note != nil {
			if err := uc.leads.AppendNote(ctx, note); err != nil {
				return fmt.Errorf("append note: %w", err)
			}
		}
		lead = l
		return nil
	})
	if err != nil {
		uc.logger.Debug("lead action rejected", zap.String("lead_id", id), zap.String("action", verb), zap.Error(err))
		return nil, err
	}
	uc.logger.Info("lead "+verb, zap.String("lead_id", lead.ID))
	uc.effects.Changed(ctx, leadChange(domain.ChangeUpdate, lead, now))
	return lead, nil
}

// ConvertToClient flips the lead and creates its client in one transaction.
func (uc *UseCase) ConvertToClient(ctx context.Context, actorID, id string) (*domain.Client, error) {
	actor, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var (
		lead   *domain.Lead
		client *domain.Client
	)
	err = usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		l, err := uc.leads.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		c, err := l.ConvertToClient(now)
		if err != nil {
			return err
		}
		if err := uc.leads.Update(ctx, l); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		if err := uc.clients.Create(ctx, c); err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		lead, client = l, c
		return nil
	})
	if err != nil {
		uc.logger.Debug("lead conversion rejected", zap.String("lead_id", id), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("lead converted", zap.String("lead_id", lead.ID), zap.String("client_id", client.ID))
	uc.effects.Changed(ctx,
		leadChange(domain.ChangeUpdate, lead, now),
		domain.NewChangeEvent(domain.TableClients, domain.ChangeInsert, client.ID, client,
			map[string]string{"status": string(client.Status)}, now),
	)
	uc.notifyAdmins(ctx, client, actor, now)
	return client, nil
}

func (uc *UseCase) notifyAdmins(ctx context.Context, client *domain.Client, actor *domain.User, now time.Time) {
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
		intents = append(intents, domain.ClientIntent(domain.NotificationClientConverted, client, actor, id, now))
	}
	uc.effects.Notify(ctx, intents...)
}

func (p Patch) apply(l *domain.Lead) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&l.Name, p.Name)
	set(&l.Phone, p.Phone)
	set(&l.Email, p.Email)
	set(&l.Address, p.Address)
	set(&l.BusinessName, p.BusinessName)
	set(&l.BusinessCategory, p.BusinessCategory)
	set(&l.Source, p.Source)
	set(&l.AssignedTo, p.AssignedTo)
	if p.Status != nil {
		if *p.Status == domain.LeadConverted {
			return domain.ErrLeadStatus
		}
		l.Status = *p.Status
	}
	if p.Priority != nil {
		l.Priority = *p.Priority
	}
	if p.InterestLevel != nil {
		l.InterestLevel = *p.InterestLevel
	}
	if p.NextFollowUp != nil {
		next := *p.NextFollowUp
		l.NextFollowUp = &next
		l.FollowUpStatus = domain.FollowUpPending
	}
	return nil
}

func authored(note domain.LeadNote, actor *domain.User) *domain.LeadNote {
	note.AuthorID = actor.ID
	return &note
}

func leadChange(kind domain.ChangeType, l *domain.Lead, now time.Time) domain.ChangeEvent {
	return domain.NewChangeEvent(domain.TableLeads, kind, l.ID, l, map[string]string{
		"assigned_to": l.AssignedTo,
		"status":      string(l.Status),
	}, now)
}
