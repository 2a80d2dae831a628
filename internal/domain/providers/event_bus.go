package providers

import (
	"context"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to booking events
type EventBus interface {
	// Publish publishes an event to all subscribers, fire-and-forget
	Publish(ctx context.Context, channel string, event *entities.Notification) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.Notification, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// ChannelForType returns the broadcast channel for a notification type
func ChannelForType(t entities.NotificationType) string {
	return string(t)
}
