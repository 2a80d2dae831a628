package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

// RestaurantStore is a read-mostly restaurant directory
type RestaurantStore struct {
	mu          sync.RWMutex
	restaurants map[string]entities.Restaurant
}

// NewRestaurantStore creates a store seeded with restaurants
func NewRestaurantStore(seed ...entities.Restaurant) *RestaurantStore {
	s := &RestaurantStore{restaurants: make(map[string]entities.Restaurant, len(seed))}
	for _, r := range seed {
		s.restaurants[r.ID] = r
	}
	return s
}

// Put adds or replaces a restaurant
func (s *RestaurantStore) Put(r entities.Restaurant) {
	s.mu.Lock()
	s.restaurants[r.ID] = r
	s.mu.Unlock()
}

// GetByID returns a restaurant by id
func (s *RestaurantStore) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.restaurants[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("restaurant not found: %s", id))
	}
	return &r, nil
}
