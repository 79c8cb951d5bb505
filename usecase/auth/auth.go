package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/usecase"
)

// TokenConfig signs the JWTs handed out with each session.
type TokenConfig struct {
	Secret string
	Issuer string
}

// Login is returned to the client after a successful login or refresh.
type Login struct {
	Session *domain.Session `json:"session"`
	Token   string          `json:"token"`
	User    *domain.User    `json:"user"`
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   TokenConfig
	clock    usecase.Clock
	logger   *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, tokens TokenConfig, clock usecase.Clock, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		clock:    clock,
		logger:   logger,
	}
}

// CreateSession opens a session for a known, active profile and signs a token for it.
func (uc *UseCase) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Login, error) {
	user, err := usecase.LoadActor(ctx, uc.users, userID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Metadata:  map[string]string{"role": user.Role},
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := uc.sign(session)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("session created", zap.String("user_id", user.ID), zap.String("session_id", session.ID))
	return &Login{Session: session, Token: token, User: user}, nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.clock.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// ValidateSession confirms the token's session is still live and belongs to userID.
func (uc *UseCase) ValidateSession(ctx context.Context, sessionID, userID string) error {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if session.UserID != userID {
		return domain.ErrUnauthorized
	}
	return nil
}

// RefreshSession extends a session owned by actorID and signs a fresh token.
func (uc *UseCase) RefreshSession(ctx context.Context, actorID, sessionID string, ttl time.Duration) (*Login, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != actorID {
		return nil, domain.ErrPermissionDenied
	}
	user, err := usecase.LoadActor(ctx, uc.users, session.UserID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, session.Extend(uc.clock.Now(), ttl)); err != nil {
		return nil, err
	}

	token, err := uc.sign(session)
	if err != nil {
		return nil, err
	}
	return &Login{Session: session, Token: token, User: user}, nil
}

// RevokeSession deletes one of actorID's sessions. Unknown ids are a no-op.
func (uc *UseCase) RevokeSession(ctx context.Context, actorID, sessionID string) error {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if session.UserID != actorID {
		return domain.ErrPermissionDenied
	}
	return uc.sessions.Delete(ctx, sessionID)
}

func (uc *UseCase) sign(session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    session.UserID,
		"session_id": session.ID,
		"iat":        session.CreatedAt.Unix(),
		"exp":        session.ExpiresAt.Unix(),
	}
	if uc.tokens.Issuer != "" {
		claims["iss"] = uc.tokens.Issuer
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.tokens.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
