package repositories

import (
	"context"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
)

// NotificationRepository defines the interface for notification records
type NotificationRepository interface {
	// Create persists a notification
	Create(ctx context.Context, notification *entities.Notification) error

	// ListByRecipient retrieves a user's notifications, newest first
	ListByRecipient(ctx context.Context, recipientID string, filter NotificationFilter) ([]*entities.Notification, error)

	// GetByID retrieves one of recipientID's notifications
	GetByID(ctx context.Context, id, recipientID string) (*entities.Notification, error)

	// Delete removes one of recipientID's notifications
	Delete(ctx context.Context, id, recipientID string) error

	// MarkRead flips the read flag of a recipient's notification
	MarkRead(ctx context.Context, id, recipientID string) error
}

// NotificationFilter defines filters for listing notifications
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
