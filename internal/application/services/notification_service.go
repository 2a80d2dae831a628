package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

// BookingNotifier emits the notification for a booking event
type BookingNotifier interface {
	Emit(ctx context.Context, notificationType entities.NotificationType, booking *entities.Booking) (*entities.Notification, error)
}

// NotificationSettings controls notification rendering
type NotificationSettings struct {
	Locale       string
	DefaultBrand string
}

// NotificationService builds booking notifications, broadcasts them and stores them
type NotificationService struct {
	repo        repositories.NotificationRepository
	restaurants repositories.RestaurantRepository
	bus         providers.EventBus
	clock       providers.Clock
	settings    NotificationSettings
	metrics     *observability.Metrics
	newID       func() string
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	repo repositories.NotificationRepository,
	restaurants repositories.RestaurantRepository,
	bus providers.EventBus,
	clock providers.Clock,
	settings NotificationSettings,
	metrics *observability.Metrics,
) *NotificationService {
	if settings.Locale == "" {
		settings.Locale = LocaleVietnamese
	}
	if settings.DefaultBrand == "" {
		settings.DefaultBrand = "Domique Fusion"
	}
	return &NotificationService{
		repo:        repo,
		restaurants: restaurants,
		bus:         bus,
		clock:       clock,
		settings:    settings,
		metrics:     metrics,
		newID:       func() string { return uuid.New().String() },
	}
}

var _ BookingNotifier = (*NotificationService)(nil)

// Emit builds the notification for booking, broadcasts it on the channel named
// after its type and persists it. A broadcast failure does not stop persistence.
// Failures come back as a NotificationDeliveryError and are already logged.
func (n *NotificationService) Emit(ctx context.Context, notificationType entities.NotificationType, booking *entities.Booking) (*entities.Notification, error) {
	logger := observability.ComponentLogger(ctx, "notifications")

	notification, err := n.build(ctx, notificationType, booking)
	if err != nil {
		logger.Error().Err(err).Str("booking_id", booking.ID).Str("type", string(notificationType)).Msg("Failed to build notification")
		return nil, apperrors.NewNotificationDeliveryError("failed to build notification", err)
	}

	var deliveryErr error
	if n.bus != nil {
		if err := n.bus.Publish(ctx, providers.ChannelForType(notificationType), notification); err != nil {
			observability.RecordNotificationFailure(ctx, n.metrics, string(notificationType), "broadcast")
			logger.Error().Err(err).Str("booking_id", booking.ID).Str("type", string(notificationType)).Msg("Failed to broadcast notification")
			deliveryErr = apperrors.NewNotificationDeliveryError("failed to broadcast notification", err)
		}
	}

	if err := n.repo.Create(ctx, notification); err != nil {
		observability.RecordNotificationFailure(ctx, n.metrics, string(notificationType), "persist")
		logger.Error().Err(err).Str("booking_id", booking.ID).Str("type", string(notificationType)).Msg("Failed to persist notification")
		return notification, apperrors.NewNotificationDeliveryError("failed to persist notification", err)
	}

	return notification, deliveryErr
}

// build renders the notification snapshot for a booking
func (n *NotificationService) build(ctx context.Context, notificationType entities.NotificationType, booking *entities.Booking) (*entities.Notification, error) {
	tpl, ok := lookupTemplate(n.settings.Locale, notificationType)
	if !ok {
		return nil, fmt.Errorf("no template for notification type %q", notificationType)
	}

	notifCtx := notificationContext{
		RestaurantName: n.restaurantName(ctx, booking.RestaurantID),
		CustomerName:   booking.FullName,
		BookingDate:    booking.DisplayDate(),
		NumberOfGuests: booking.PeopleQuantity,
	}

	return &entities.Notification{
		ID:             n.newID(),
		RecipientID:    booking.CustomerID,
		RestaurantID:   booking.RestaurantID,
		Title:          renderTemplate(tpl.Title, notifCtx),
		Message:        renderTemplate(tpl.Message, notifCtx),
		Customer:       booking.FullName,
		Type:           notificationType,
		NumberOfGuests: booking.PeopleQuantity,
		BookingDate:    notifCtx.BookingDate,
		Read:           false,
		CreatedAt:      n.clock.Now(),
	}, nil
}

// restaurantName falls back to the default brand on any lookup failure
func (n *NotificationService) restaurantName(ctx context.Context, restaurantID string) string {
	if n.restaurants == nil || restaurantID == "" {
		return n.settings.DefaultBrand
	}
	restaurant, err := n.restaurants.GetByID(ctx, restaurantID)
	if err != nil || restaurant == nil || restaurant.Name == "" {
		return n.settings.DefaultBrand
	}
	return restaurant.Name
}

// ListForRecipient returns a user's notifications, newest first
func (n *NotificationService) ListForRecipient(ctx context.Context, recipientID string, filter repositories.NotificationFilter) ([]*entities.Notification, error) {
	if recipientID == "" {
		return nil, apperrors.NewValidationError("recipient is required")
	}
	return n.repo.ListByRecipient(ctx, recipientID, filter)
}

// GetNotification returns one of the recipient's notifications
func (n *NotificationService) GetNotification(ctx context.Context, id, recipientID string) (*entities.Notification, error) {
	if id == "" || recipientID == "" {
		return nil, apperrors.NewValidationError("notification id and recipient are required")
	}
	return n.repo.GetByID(ctx, id, recipientID)
}

// DeleteNotification removes one of the recipient's notifications
func (n *NotificationService) DeleteNotification(ctx context.Context, id, recipientID string) error {
	if id == "" || recipientID == "" {
		return apperrors.NewValidationError("notification id and recipient are required")
	}
	return n.repo.Delete(ctx, id, recipientID)
}

// MarkRead marks a recipient's notification as read
func (n *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if id == "" || recipientID == "" {
		return apperrors.NewValidationError("notification id and recipient are required")
	}
	return n.repo.MarkRead(ctx, id, recipientID)
}
