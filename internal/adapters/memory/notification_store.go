package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

// NotificationStore keeps notifications in memory
type NotificationStore struct {
	mu            sync.RWMutex
	notifications []*entities.Notification
}

// NewNotificationStore creates an empty notification store
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Create stores a copy of the notification
func (s *NotificationStore) Create(ctx context.Context, notification *entities.Notification) error {
	if notification == nil || notification.ID == "" {
		return apperrors.NewValidationError("notification id is required")
	}
	n := *notification

	s.mu.Lock()
	s.notifications = append(s.notifications, &n)
	s.mu.Unlock()
	return nil
}

// ListByRecipient returns a recipient's notifications, newest first
func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID string, filter repositories.NotificationFilter) ([]*entities.Notification, error) {
	s.mu.RLock()
	out := make([]*entities.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*entities.Notification{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkRead sets the read flag on a notification owned by recipientID
func (s *NotificationStore) MarkRead(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return apperrors.NewNotFoundError(fmt.Sprintf("notification not found: %s", id))
}

// GetByID returns a copy of a notification owned by recipientID
func (s *NotificationStore) GetByID(ctx context.Context, id, recipientID string) (*entities.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			c := *n
			return &c, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("notification not found: %s", id))
}

// Delete removes a notification owned by recipientID
func (s *NotificationStore) Delete(ctx context.Context, id, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFoundError(fmt.Sprintf("notification not found: %s", id))
}

// All returns a snapshot of every stored notification in insertion order
func (s *NotificationStore) All() []*entities.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Notification, len(s.notifications))
	for i, n := range s.notifications {
		c := *n
		out[i] = &c
	}
	return out
}
