package repository

import (
	"context"

	"github.com/fastygo/crm/domain"
)

// ChangeFeed fans committed row changes out to realtime subscribers.
type ChangeFeed interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
	// Subscribe streams events for table until ctx is done or the returned close is called.
	Subscribe(ctx context.Context, table string) (<-chan domain.ChangeEvent, func() error, error)
}
