package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
)

// NotificationService defines the notification inbox operations
type NotificationService interface {
	ListForRecipient(ctx context.Context, recipientID string, filter repositories.NotificationFilter) ([]*entities.Notification, error)
	GetNotification(ctx context.Context, id, recipientID string) (*entities.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	DeleteNotification(ctx context.Context, id, recipientID string) error
}

// NotificationHandler serves the caller's notification inbox
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListNotifications handles GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := repositories.NotificationFilter{UnreadOnly: query.Get("unread") == "true"}

	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid offset parameter")
		return
	}

	notifications, err := h.service.ListForRecipient(r.Context(), actor.ID, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// MarkRead handles PATCH /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), r.PathValue("id"), actor.ID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetNotification handles GET /api/notifications/{id}
func (h *NotificationHandler) GetNotification(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	notification, err := h.service.GetNotification(r.Context(), r.PathValue("id"), actor.ID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, notification)
}

// DeleteNotification handles DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteNotification(r.Context(), r.PathValue("id"), actor.ID); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
