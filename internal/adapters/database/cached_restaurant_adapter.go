package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
)

// restaurantByIDTTL is how long a restaurant name stays cached, in seconds
const restaurantByIDTTL = 600

// CachedRestaurantAdapter wraps a RestaurantRepository with a read-through cache
type CachedRestaurantAdapter struct {
	adapter repositories.RestaurantRepository
	cache   providers.CacheProvider
	// async controls whether cache fills happen off the request path
	async bool
}

// NewCachedRestaurantAdapter creates a new cached restaurant adapter
func NewCachedRestaurantAdapter(adapter repositories.RestaurantRepository, cache providers.CacheProvider) repositories.RestaurantRepository {
	return &CachedRestaurantAdapter{
		adapter: adapter,
		cache:   cache,
		async:   true,
	}
}

func restaurantCacheKey(id string) string {
	return fmt.Sprintf("restaurant:%s", id)
}

// GetByID retrieves a restaurant by ID with caching
func (a *CachedRestaurantAdapter) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	cacheKey := restaurantCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var restaurant entities.Restaurant
		if err := json.Unmarshal(cached, &restaurant); err == nil {
			return &restaurant, nil
		}
		log.Warn().Err(err).Str("restaurant_id", id).Msg("Failed to unmarshal cached restaurant")
	}

	restaurant, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fill := func() {
		data, err := json.Marshal(restaurant)
		if err != nil {
			return
		}
		if err := a.cache.Set(context.Background(), cacheKey, data, restaurantByIDTTL); err != nil {
			log.Warn().Err(err).Str("restaurant_id", id).Msg("Failed to cache restaurant")
		}
	}
	if a.async {
		go fill()
	} else {
		fill()
	}

	return restaurant, nil
}

// Invalidate drops a cached restaurant after it was renamed or removed
func (a *CachedRestaurantAdapter) Invalidate(ctx context.Context, id string) error {
	return a.cache.Delete(ctx, restaurantCacheKey(id))
}
