package repositories

import (
	"context"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
)

// RestaurantRepository gives read access to restaurants owned by the CRUD layer
type RestaurantRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Restaurant, error)
}
