package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/pkg/httpcontext"
)

// SessionValidator confirms that the session behind a token is still live.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID, userID string) error
}

// Claims are the JWT claims issued at login.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret  string
	Issuer  string
	Timeout time.Duration
}

// JWTAuth verifies the bearer token, checks its session, and exposes the user
// ID to handlers through the X-User-ID header.
func JWTAuth(cfg AuthConfig, sessions SessionValidator, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			// never trust a client-supplied identity header
			ctx.Request.Header.Del(httpcontext.HeaderUserID)

			tokenString := extractToken(ctx)
			if tokenString == "" {
				reject(ctx, "missing bearer token")
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.Secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				reject(ctx, "invalid token")
				return
			}
			if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
				logger.Warn("jwt issuer mismatch", zap.String("issuer", claims.Issuer))
				reject(ctx, "invalid token")
				return
			}
			if claims.UserID == "" {
				reject(ctx, "invalid token")
				return
			}

			if sessions != nil && claims.SessionID != "" {
				checkCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
				err := sessions.ValidateSession(checkCtx, claims.SessionID, claims.UserID)
				cancel()
				if err != nil {
					if !errors.Is(err, domain.ErrUnauthorized) {
						logger.Error("session check failed", zap.Error(err))
					}
					reject(ctx, "session expired")
					return
				}
			}

			ctx.Request.Header.Set(httpcontext.HeaderUserID, claims.UserID)
			next(ctx)
		}
	}
}

func reject(ctx *fasthttp.RequestCtx, message string) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(transport.NewError(string(domain.ErrCodeUnauthorized), message, nil).String())
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		// EventSource clients cannot set headers
		return string(ctx.QueryArgs().Peek("access_token"))
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
