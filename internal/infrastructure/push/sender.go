package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/internal/config"
)

// ErrNoDevices means the target has no registered device tokens.
var ErrNoDevices = errors.New("no registered devices")

// Result describes one multicast attempt.
type Result struct {
	Sent int
	// Stale lists tokens the provider reported as unregistered.
	Stale []string
}

// Sender delivers a notification to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, intent domain.NotificationIntent) (Result, error)
}

// FCMSender delivers through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewSender returns an FCM sender, or a log-only sender when push is disabled.
func NewSender(ctx context.Context, cfg config.PushConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("push delivery disabled, notifications are logged only")
		return LogSender{Logger: logger}, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	logger.Info("push delivery via FCM enabled")
	return &FCMSender{client: client, logger: logger}, nil
}

func (s *FCMSender) Send(ctx context.Context, tokens []string, intent domain.NotificationIntent) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, ErrNoDevices
	}

	resp, err := s.client.SendEachForMulticast(ctx, BuildMessage(tokens, intent))
	if err != nil {
		return Result{}, fmt.Errorf("fcm multicast: %w", err)
	}

	result := Result{Sent: resp.SuccessCount}
	var lastErr error
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		if messaging.IsRegistrationTokenNotRegistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			result.Stale = append(result.Stale, tokens[i])
			continue
		}
		lastErr = r.Error
	}

	if result.Sent == 0 && lastErr != nil {
		return result, fmt.Errorf("fcm delivery: %w", lastErr)
	}
	return result, nil
}

// BuildMessage maps an intent onto an FCM multicast payload.
func BuildMessage(tokens []string, intent domain.NotificationIntent) *messaging.MulticastMessage {
	data := make(map[string]string, len(intent.Metadata)+3)
	for k, v := range intent.Metadata {
		data[k] = v
	}
	data["type"] = string(intent.Type)
	if intent.TaskID != "" {
		data["task_id"] = intent.TaskID
	}
	if intent.ID != "" {
		data["notification_id"] = intent.ID
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Notification: &messaging.Notification{
			Title: intent.Title,
			Body:  intent.Message,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
				Tag:   string(intent.Type),
			},
		},
	}
}

// LogSender records notifications without delivering them.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, tokens []string, intent domain.NotificationIntent) (Result, error) {
	if s.Logger != nil {
		s.Logger.Info("notification",
			zap.String("type", string(intent.Type)),
			zap.String("target_user_id", intent.TargetUserID),
			zap.String("title", intent.Title),
			zap.Int("devices", len(tokens)))
	}
	return Result{Sent: len(tokens)}, nil
}
