package redis

import (
	"context"
	"encoding/json"
	"fmt"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

type changeFeed struct {
	client *redislib.Client
	prefix string
	logger *zap.Logger
}

// NewChangeFeed publishes change events on "crm:changes:<table>" channels.
func NewChangeFeed(client *redislib.Client, logger *zap.Logger) repository.ChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &changeFeed{
		client: client,
		prefix: "crm:changes:",
		logger: logger,
	}
}

func (f *changeFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel(event.Table), payload).Err()
}

func (f *changeFeed) Subscribe(ctx context.Context, table string) (<-chan domain.ChangeEvent, func() error, error) {
	sub := f.client.Subscribe(ctx, f.channel(table))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	out := make(chan domain.ChangeEvent, 16)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("dropping malformed change event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, sub.Close, nil
}

func (f *changeFeed) channel(table string) string {
	return f.prefix + table
}
