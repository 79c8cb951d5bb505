package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/usecase"
)

// Config holds team administration rules.
type Config struct {
	ThresholdMode domain.ThresholdMode
	InvitationTTL time.Duration
}

type UseCase struct {
	users       repository.UserRepository
	promotions  repository.PromotionRepository
	joins       repository.JoinRequestRepository
	invitations repository.InvitationRepository
	tx          repository.Transactor
	effects     usecase.Effects
	clock       usecase.Clock
	cfg         Config
	logger      *zap.Logger
}

func New(
	users repository.UserRepository,
	promotions repository.PromotionRepository,
	joins repository.JoinRequestRepository,
	invitations repository.InvitationRepository,
	tx repository.Transactor,
	effects usecase.Effects,
	clock usecase.Clock,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.ThresholdMode.Valid() {
		cfg.ThresholdMode = domain.ThresholdFrozen
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = 7 * 24 * time.Hour
	}
	if effects.Logger == nil {
		effects.Logger = logger
	}
	return &UseCase{
		users:       users,
		promotions:  promotions,
		joins:       joins,
		invitations: invitations,
		tx:          tx,
		effects:     effects,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
}

// RequestPromotion opens a vote to make targetID an admin.
func (uc *UseCase) RequestPromotion(ctx context.Context, actorID, targetID string) (*domain.PromotionRequest, error) {
	actor, err := usecase.RequireAdmin(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	target, err := uc.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var req *domain.PromotionRequest
	err = usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		if _, err := uc.promotions.FindPendingByUser(ctx, target.ID); err == nil {
			return domain.ErrPromotionPending
		} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return fmt.Errorf("find pending promotion: %w", err)
		}
		admins, err := uc.users.CountAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		r, err := domain.NewPromotionRequest(target, actor, admins, now)
		if err != nil {
			return err
		}
		if err := uc.promotions.Create(ctx, r); err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		uc.logger.Debug("promotion request rejected", zap.String("user_id", targetID), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("promotion requested",
		zap.String("request_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.Int("required_approvals", req.RequiredApprovals))
	uc.effects.Changed(ctx, promotionChange(domain.ChangeInsert, req, now))
	return req, nil
}

// CastVote records the admin's vote and promotes the target once the threshold is met.
// The request row stays locked from read to promotion.
func (uc *UseCase) CastVote(ctx context.Context, actorID, requestID string, approved bool) (*domain.VoteResult, error) {
	actor, err := usecase.RequireAdmin(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	var result domain.VoteResult
	err = usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		req, err := uc.promotions.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		vote, err := req.RecordVote(actor, approved, now)
		if err != nil {
			return err
		}
		if err := uc.promotions.UpsertApproval(ctx, &vote); err != nil {
			return fmt.Errorf("record vote: %w", err)
		}
		admins, err := uc.users.CountAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}

		result = domain.VoteResult{
			Request:       req,
			ApprovedCount: domain.Tally(req.Approvals),
			Required:      domain.Threshold(req, admins, uc.cfg.ThresholdMode),
		}
		if !domain.ShouldApprove(req, admins, uc.cfg.ThresholdMode) {
			return nil
		}
		if err := uc.users.UpdateRole(ctx, req.UserID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		req.Approve(now)
		if err := uc.promotions.Update(ctx, req); err != nil {
			return fmt.Errorf("resolve promotion: %w", err)
		}
		result.Promoted = true
		return nil
	})
	if err != nil {
		uc.logger.Debug("vote rejected", zap.String("request_id", requestID), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("promotion vote recorded",
		zap.String("request_id", requestID),
		zap.String("admin_id", actor.ID),
		zap.Bool("approved", approved),
		zap.Int("approved_count", result.ApprovedCount),
		zap.Int("required", result.Required),
		zap.Bool("promoted", result.Promoted))
	uc.effects.Changed(ctx, promotionChange(domain.ChangeUpdate, result.Request, now))
	if result.Promoted {
		uc.effects.Changed(ctx, domain.NewChangeEvent(domain.TableProfiles, domain.ChangeUpdate, result.Request.UserID, nil,
			map[string]string{"role": domain.RoleAdmin}, now))
	}
	return &result, nil
}

func (uc *UseCase) ListPendingPromotions(ctx context.Context, actorID string) ([]domain.PromotionRequest, error) {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.promotions.ListPending(ctx)
}

// SubmitJoinRequest is public: anyone may apply once per email.
func (uc *UseCase) SubmitJoinRequest(ctx context.Context, email, fullName, message string) (*domain.JoinRequest, error) {
	now := uc.clock.Now()
	req, err := domain.NewJoinRequest(email, fullName, message, now)
	if err != nil {
		return nil, err
	}
	if _, err := uc.joins.FindPendingByEmail(ctx, req.Email); err == nil {
		return nil, domain.ErrJoinRequestExists
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, fmt.Errorf("find join request: %w", err)
	}
	if err := uc.joins.Create(ctx, req); err != nil {
		return nil, err
	}
	uc.logger.Info("join request submitted", zap.String("join_request_id", req.ID))
	uc.effects.Changed(ctx, joinChange(domain.ChangeInsert, req, now))
	return req, nil
}

func (uc *UseCase) ListJoinRequests(ctx context.Context, actorID, status string) ([]domain.JoinRequest, error) {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.joins.List(ctx, status)
}

func (uc *UseCase) ApproveJoinRequest(ctx context.Context, actorID, id string) (*domain.JoinRequest, error) {
	return uc.resolveJoin(ctx, actorID, id, func(j *domain.JoinRequest, admin *domain.User, now time.Time) error {
		return j.Approve(admin, now)
	})
}

func (uc *UseCase) RejectJoinRequest(ctx context.Context, actorID, id, reason string) (*domain.JoinRequest, error) {
	return uc.resolveJoin(ctx, actorID, id, func(j *domain.JoinRequest, admin *domain.User, now time.Time) error {
		return j.Reject(admin, reason, now)
	})
}

func (uc *UseCase) resolveJoin(
	ctx context.Context,
	actorID, id string,
	fn func(j *domain.JoinRequest, admin *domain.User, now time.Time) error,
) (*domain.JoinRequest, error) {
	admin, err := usecase.RequireAdmin(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	var req *domain.JoinRequest
	err = usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		j, err := uc.joins.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(j, admin, now); err != nil {
			return err
		}
		if err := uc.joins.Update(ctx, j); err != nil {
			return fmt.Errorf("update join request: %w", err)
		}
		req = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("join request resolved", zap.String("join_request_id", req.ID), zap.String("status", string(req.Status)))
	uc.effects.Changed(ctx, joinChange(domain.ChangeUpdate, req, now))
	return req, nil
}

func (uc *UseCase) CreateInvitation(ctx context.Context, actorID, email string) (*domain.Invitation, error) {
	admin, err := usecase.RequireAdmin(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	inv, err := domain.NewInvitation(admin, email, uc.cfg.InvitationTTL, now)
	if err != nil {
		return nil, err
	}
	if err := uc.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	uc.logger.Info("invitation created", zap.String("invitation_id", inv.ID), zap.Time("expires_at", inv.ExpiresAt))
	uc.effects.Changed(ctx, domain.NewChangeEvent(domain.TableInvitations, domain.ChangeInsert, inv.ID, nil,
		map[string]string{"status": string(inv.Status)}, now))
	return inv, nil
}

func (uc *UseCase) ListInvitations(ctx context.Context, actorID, status string) ([]domain.Invitation, error) {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.invitations.List(ctx, status)
}

// LookupInvitation lets an invitee check a token before signing up.
func (uc *UseCase) LookupInvitation(ctx context.Context, token string) (*domain.Invitation, error) {
	inv, err := uc.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvitationPending {
		return nil, domain.ErrInvitationUsed
	}
	if !uc.clock.Now().Before(inv.ExpiresAt) {
		return nil, domain.ErrInvitationExpired
	}
	return inv, nil
}

// AcceptInvitation creates the invitee's member profile and consumes the token.
func (uc *UseCase) AcceptInvitation(ctx context.Context, token, userID, fullName string) (*domain.User, error) {
	now := uc.clock.Now()
	var user *domain.User
	err := usecase.RunInTx(ctx, uc.tx, func(ctx context.Context) error {
		inv, err := uc.invitations.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		u, err := inv.Redeem(userID, fullName, now)
		if err != nil {
			return err
		}
		if existing, err := uc.users.GetByID(ctx, u.ID); err == nil {
			if existing.IsAdmin() {
				return domain.ErrAlreadyAdmin
			}
			u.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("load profile: %w", err)
		}
		if err := uc.users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := uc.invitations.Update(ctx, inv); err != nil {
			return fmt.Errorf("update invitation: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		uc.logger.Debug("invitation rejected", zap.Error(err))
		return nil, err
	}
	uc.logger.Info("invitation accepted", zap.String("user_id", user.ID))
	uc.effects.Changed(ctx, domain.NewChangeEvent(domain.TableProfiles, domain.ChangeInsert, user.ID, user,
		map[string]string{"role": user.Role, "status": user.Status}, now))
	return user, nil
}

func promotionChange(kind domain.ChangeType, r *domain.PromotionRequest, now time.Time) domain.ChangeEvent {
	return domain.NewChangeEvent(domain.TablePromotions, kind, r.ID, r, map[string]string{
		"user_id": r.UserID,
		"status":  string(r.Status),
	}, now)
}

func joinChange(kind domain.ChangeType, j *domain.JoinRequest, now time.Time) domain.ChangeEvent {
	return domain.NewChangeEvent(domain.TableJoinRequests, kind, j.ID, j, map[string]string{
		"email":  j.Email,
		"status": string(j.Status),
	}, now)
}
