package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/internal/infrastructure/buffer"
	"github.com/fastygo/crm/usecase"
)

// OutboxBridge adapts the usecase ports onto the outbox.
type OutboxBridge struct {
	outbox *Outbox
}

func NewOutboxBridge(outbox *Outbox) *OutboxBridge {
	return &OutboxBridge{outbox: outbox}
}

func (b *OutboxBridge) EnqueueNotification(ctx context.Context, intent domain.NotificationIntent) error {
	if b.outbox == nil || intent.TargetUserID == "" {
		return domain.ErrInvalidPayload
	}
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return b.outbox.Submit(ctx, buffer.Item{
		ID:        intent.ID,
		UserID:    intent.TargetUserID,
		Entity:    buffer.EntityNotification,
		Data:      payload,
		Priority:  buffer.PriorityHigh,
		Timestamp: intent.CreatedAt,
	})
}

func (b *OutboxBridge) PublishChange(ctx context.Context, event domain.ChangeEvent) error {
	if b.outbox == nil || event.Table == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.outbox.Submit(ctx, buffer.Item{
		Entity:    buffer.EntityChange,
		Data:      payload,
		Priority:  buffer.PriorityNormal,
		Timestamp: event.At,
	})
}

var (
	_ usecase.NotificationQueue = (*OutboxBridge)(nil)
	_ usecase.ChangePublisher   = (*OutboxBridge)(nil)
)
