package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

const defaultNotificationPageSize = 50

// NotificationAdapter implements the NotificationRepository interface with sqlx
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new notification adapter
func NewNotificationAdapter(db *sqlx.DB) repositories.NotificationRepository {
	return &NotificationAdapter{db: db}
}

// Create inserts a notification record
func (a *NotificationAdapter) Create(ctx context.Context, notification *entities.Notification) error {
	query := `
		INSERT INTO notifications
		(id, recipient_id, restaurant_id, title, message, customer, type,
		 number_of_guests, booking_date, read, created_at)
		VALUES (:id, :recipient_id, :restaurant_id, :title, :message, :customer, :type,
		 :number_of_guests, :booking_date, :read, :created_at)
	`
	if _, err := a.db.NamedExecContext(ctx, query, notification); err != nil {
		return apperrors.NewInternalError("failed to create notification", err)
	}
	return nil
}

// ListByRecipient retrieves a recipient's notifications, newest first
func (a *NotificationAdapter) ListByRecipient(ctx context.Context, recipientID string, filter repositories.NotificationFilter) ([]*entities.Notification, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultNotificationPageSize
	}

	query := `
		SELECT id, recipient_id, restaurant_id, title, message, customer, type,
		       number_of_guests, booking_date, read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND ($2 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	notifications := make([]*entities.Notification, 0)
	if err := a.db.SelectContext(ctx, &notifications, query, recipientID, filter.UnreadOnly, limit, filter.Offset); err != nil {
		return nil, apperrors.NewInternalError("failed to list notifications", err)
	}
	return notifications, nil
}

// MarkRead flags a recipient's notification as read
func (a *NotificationAdapter) MarkRead(ctx context.Context, id, recipientID string) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND recipient_id = $2`
	result, err := a.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return apperrors.NewInternalError("failed to mark notification read", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	return nil
}

// GetByID retrieves one of the recipient's notifications
func (a *NotificationAdapter) GetByID(ctx context.Context, id, recipientID string) (*entities.Notification, error) {
	query := `
		SELECT id, recipient_id, restaurant_id, title, message, customer, type,
		       number_of_guests, booking_date, read, created_at
		FROM notifications
		WHERE id = $1 AND recipient_id = $2
	`
	var notification entities.Notification
	err := a.db.GetContext(ctx, &notification, query, id, recipientID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get notification", err)
	}
	return &notification, nil
}

// Delete removes one of the recipient's notifications
func (a *NotificationAdapter) Delete(ctx context.Context, id, recipientID string) error {
	result, err := a.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return apperrors.NewInternalError("failed to delete notification", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	return nil
}
