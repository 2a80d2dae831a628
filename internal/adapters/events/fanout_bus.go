package events

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
)

// Mirror receives a copy of every published event
type Mirror interface {
	Publish(ctx context.Context, channel string, event *entities.Notification) error
	Close() error
}

// FanoutBus publishes to a primary bus and copies each event to mirrors.
// Subscriptions are served by the primary bus only; mirror failures are logged.
type FanoutBus struct {
	primary providers.EventBus
	mirrors []Mirror
}

// NewFanoutBus creates a bus that mirrors the primary's events
func NewFanoutBus(primary providers.EventBus, mirrors ...Mirror) *FanoutBus {
	return &FanoutBus{primary: primary, mirrors: mirrors}
}

var _ providers.EventBus = (*FanoutBus)(nil)

// Publish delivers to the primary bus first, then to every mirror
func (b *FanoutBus) Publish(ctx context.Context, channel string, event *entities.Notification) error {
	err := b.primary.Publish(ctx, channel, event)
	for _, m := range b.mirrors {
		if mErr := m.Publish(ctx, channel, event); mErr != nil {
			log.Warn().Err(mErr).Str("channel", channel).Str("event_id", event.ID).Msg("Failed to mirror booking event")
		}
	}
	return err
}

// Subscribe subscribes on the primary bus
func (b *FanoutBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.Notification, error) {
	return b.primary.Subscribe(ctx, channel)
}

// Unsubscribe unsubscribes on the primary bus
func (b *FanoutBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.primary.Unsubscribe(ctx, channel)
}

// Close closes the mirrors and the primary bus
func (b *FanoutBus) Close() error {
	for _, m := range b.mirrors {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event mirror")
		}
	}
	return b.primary.Close()
}
