package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

// RestaurantAdapter stores restaurants in PostgreSQL
type RestaurantAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRestaurantAdapter creates a new restaurant adapter
func NewRestaurantAdapter(client *postgres.Client) *RestaurantAdapter {
	return &RestaurantAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var _ repositories.RestaurantRepository = (*RestaurantAdapter)(nil)

// GetByID retrieves a restaurant by ID
func (a *RestaurantAdapter) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	query, _, err := a.db.From("restaurants").
		Select("id", "name", "concept_id").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	restaurant := &entities.Restaurant{}
	var conceptID sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query).Scan(&restaurant.ID, &restaurant.Name, &conceptID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("restaurant with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get restaurant", err)
	}

	restaurant.ConceptID = conceptID.String
	return restaurant, nil
}

// Upsert inserts a restaurant or renames an existing one
func (a *RestaurantAdapter) Upsert(ctx context.Context, restaurant *entities.Restaurant) error {
	var conceptID interface{}
	if restaurant.ConceptID != "" {
		conceptID = restaurant.ConceptID
	}

	query, _, err := a.db.Insert("restaurants").
		Rows(goqu.Record{"id": restaurant.ID, "name": restaurant.Name, "concept_id": conceptID}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":       goqu.L("EXCLUDED.name"),
			"concept_id": goqu.L("EXCLUDED.concept_id"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return apperrors.NewInternalError("failed to upsert restaurant", err)
	}
	return nil
}
