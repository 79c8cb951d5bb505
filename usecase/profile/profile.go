package profile

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

// Update carries the self-service profile fields.
type Update struct {
	FullName  *string
	AvatarURL *string
	Metadata  map[string]string
}

type UseCase struct {
	users    repository.UserRepository
	devices  repository.DeviceTokenRepository
	sessions repository.SessionRepository
	effects  usecase.Effects
	clock    usecase.Clock
	logger   *zap.Logger
}

func New(users repository.UserRepository, devices repository.DeviceTokenRepository, sessions repository.SessionRepository, effects usecase.Effects, clock usecase.Clock, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if effects.Logger == nil {
		effects.Logger = logger
	}
	return &UseCase{
		users:    users,
		devices:  devices,
		sessions: sessions,
		effects:  effects,
		clock:    clock,
		logger:   logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, actorID, userID string) (*domain.User, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.users.GetByID(ctx, userID)
}

func (uc *UseCase) ListProfiles(ctx context.Context, actorID string) ([]domain.User, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	return uc.users.List(ctx, repository.UserFilter{})
}

// UpdateProfile lets a user edit their own display fields. Role and status are not editable here.
func (uc *UseCase) UpdateProfile(ctx context.Context, actorID string, in Update) (*domain.User, error) {
	user, err := usecase.LoadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Metadata != nil {
		user.Metadata = in.Metadata
	}
	if err := uc.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	uc.effects.Changed(ctx, profileChange(domain.ChangeUpdate, user, uc.clock.Now()))
	return user, nil
}

// Deactivate disables a member's access. Admins cannot deactivate themselves.
func (uc *UseCase) Deactivate(ctx context.Context, actorID, userID string) (*domain.User, error) {
	if _, err := usecase.RequireAdmin(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	if actorID == userID {
		return nil, domain.ErrPermissionDenied
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Status = domain.UserStatusInactive
	if err := uc.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("deactivate profile: %w", err)
	}
	if uc.sessions != nil {
		if err := uc.sessions.DeleteByUser(ctx, userID); err != nil {
			uc.logger.Warn("revoke sessions failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	uc.logger.Info("profile deactivated", zap.String("user_id", userID), zap.String("actor_id", actorID))
	uc.effects.Changed(ctx, profileChange(domain.ChangeUpdate, user, uc.clock.Now()))
	return user, nil
}

// RegisterDevice stores a push token for the caller.
func (uc *UseCase) RegisterDevice(ctx context.Context, actorID, token, platform string) (*domain.DeviceToken, error) {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidPayload
	}
	device := &domain.DeviceToken{UserID: actorID, Token: token, Platform: strings.TrimSpace(platform), CreatedAt: uc.clock.Now()}
	if err := uc.devices.Save(ctx, device); err != nil {
		return nil, fmt.Errorf("save device token: %w", err)
	}
	return device, nil
}

func (uc *UseCase) UnregisterDevice(ctx context.Context, actorID, token string) error {
	if _, err := usecase.LoadActor(ctx, uc.users, actorID); err != nil {
		return err
	}
	return uc.devices.Delete(ctx, actorID, token)
}

func profileChange(kind domain.ChangeType, u *domain.User, now time.Time) domain.ChangeEvent {
	return domain.NewChangeEvent(domain.TableProfiles, kind, u.ID, u, map[string]string{
		"role":   u.Role,
		"status": u.Status,
	}, now)
}
