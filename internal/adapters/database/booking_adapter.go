package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

const (
	bookingsTable       = "bookings"
	bookingHistoryTable = "booking_status_history"
)

var bookingColumns = []interface{}{
	goqu.I("b.id"), goqu.I("b.customer_id"), goqu.I("b.restaurant_id"),
	goqu.I("b.time_of_booking"), goqu.I("b.time_slot"), goqu.I("b.people_quantity"),
	goqu.I("b.full_name"), goqu.I("b.number_phone"), goqu.I("b.email"), goqu.I("b.notes"),
	goqu.I("b.status"), goqu.I("b.version"), goqu.I("b.created_at"),
}

// BookingAdapter implements the BookingRepository interface on PostgreSQL.
// History rows live in their own table keyed by (booking_id, seq).
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts the booking and its initial history in one transaction
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	if len(booking.StatusHistory) == 0 {
		return apperrors.NewValidationError("booking history must not be empty")
	}

	insertBooking, _, err := a.db.Insert(bookingsTable).Rows(goqu.Record{
		"id":              booking.ID,
		"customer_id":     booking.CustomerID,
		"restaurant_id":   booking.RestaurantID,
		"time_of_booking": booking.TimeOfBooking,
		"time_slot":       booking.TimeSlot,
		"people_quantity": booking.PeopleQuantity,
		"full_name":       booking.FullName,
		"number_phone":    booking.NumberPhone,
		"email":           booking.Email,
		"notes":           booking.Notes,
		"status":          string(booking.Status),
		"version":         booking.Version,
		"created_at":      booking.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	rows := make([]interface{}, 0, len(booking.StatusHistory))
	for i, entry := range booking.StatusHistory {
		rows = append(rows, historyRecord(booking.ID, i+1, entry))
	}
	insertHistory, _, err := a.db.Insert(bookingHistoryTable).Rows(rows...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build history insert query", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertBooking); err != nil {
		return apperrors.NewInternalError("failed to create booking", err)
	}
	if _, err := tx.ExecContext(ctx, insertHistory); err != nil {
		return apperrors.NewInternalError("failed to create booking history", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit booking", err)
	}
	return nil
}

// GetByID retrieves a booking and its history
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, _, err := a.selectBookings().Where(goqu.Ex{"b.id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}

	if err := a.attachHistory(ctx, []*entities.Booking{booking}); err != nil {
		return nil, err
	}
	return booking, nil
}

// List retrieves bookings matching the filter, newest first
func (a *BookingAdapter) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	ex := goqu.Ex{}
	if filter.CustomerID != "" {
		ex["b.customer_id"] = filter.CustomerID
	}
	if filter.RestaurantID != "" {
		ex["b.restaurant_id"] = filter.RestaurantID
	}
	if filter.Status != "" {
		ex["b.status"] = string(filter.Status)
	}

	ds := a.selectBookings()
	if len(ex) > 0 {
		ds = ds.Where(ex)
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}
	return a.query(ctx, ds)
}

// ApplyTransition moves the booking from one status to another inside a transaction.
// The UPDATE only matches while the stored status equals from, which makes it a compare-and-swap.
func (a *BookingAdapter) ApplyTransition(ctx context.Context, id string, from, to entities.BookingStatus, actor string, at time.Time) (*entities.Booking, error) {
	update, _, err := a.db.Update(bookingsTable).
		Set(goqu.Record{
			"status":  string(to),
			"version": goqu.L("version + 1"),
		}).
		Where(goqu.Ex{"id": id, "status": string(from)}).
		Returning("version").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build transition query", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx, update).Scan(&version)
	if err == sql.ErrNoRows {
		return nil, a.transitionMiss(ctx, tx, id, from)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to apply transition", err)
	}

	insert, _, err := a.db.Insert(bookingHistoryTable).
		Rows(historyRecord(id, version, entities.StatusHistoryEntry{Status: to, UpdatedAt: at, UpdatedBy: actor})).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build history insert query", err)
	}
	if _, err := tx.ExecContext(ctx, insert); err != nil {
		return nil, apperrors.NewInternalError("failed to append booking history", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit transition", err)
	}

	return a.GetByID(ctx, id)
}

// transitionMiss tells a missing booking apart from one whose status moved on
func (a *BookingAdapter) transitionMiss(ctx context.Context, tx *sql.Tx, id string, from entities.BookingStatus) error {
	query, _, err := a.db.From(bookingsTable).Select("status").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var current string
	err = tx.QueryRowContext(ctx, query).Scan(&current)
	if err == sql.ErrNoRows {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return apperrors.NewInternalError("failed to read booking status", err)
	}
	return apperrors.NewConflictError(fmt.Sprintf("booking %s is %s, expected %s", id, current, from))
}

// Delete removes the booking; history rows go with it through ON DELETE CASCADE
func (a *BookingAdapter) Delete(ctx context.Context, id string) error {
	query, _, err := a.db.Delete(bookingsTable).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query)
	if err != nil {
		return apperrors.NewInternalError("failed to delete booking", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to delete booking", err)
	}
	if rows == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	return nil
}

// ListCreatedBetween returns bookings still in status whose created_at falls in [from, to]
func (a *BookingAdapter) ListCreatedBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error) {
	ds := a.selectBookings().Where(
		goqu.Ex{"b.status": string(status)},
		goqu.I("b.created_at").Between(goqu.Range(from, to)),
	)
	return a.query(ctx, ds)
}

// ListEnteredStatusBetween returns bookings still in status that entered it within [from, to]
func (a *BookingAdapter) ListEnteredStatusBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error) {
	entered := a.db.From(goqu.T(bookingHistoryTable).As("h")).
		Select(goqu.L("1")).
		Where(
			goqu.Ex{"h.booking_id": goqu.I("b.id"), "h.status": string(status)},
			goqu.I("h.updated_at").Between(goqu.Range(from, to)),
		)

	ds := a.selectBookings().Where(
		goqu.Ex{"b.status": string(status)},
		goqu.L("EXISTS ?", entered),
	)
	return a.query(ctx, ds)
}

// ListByStatusAndSlot returns bookings in status scheduled for date and slot
func (a *BookingAdapter) ListByStatusAndSlot(ctx context.Context, status entities.BookingStatus, date, slot string) ([]*entities.Booking, error) {
	ds := a.selectBookings().Where(goqu.Ex{
		"b.status":          string(status),
		"b.time_of_booking": date,
		"b.time_slot":       slot,
	})
	return a.query(ctx, ds)
}

func (a *BookingAdapter) selectBookings() *goqu.SelectDataset {
	return a.db.From(goqu.T(bookingsTable).As("b")).
		Select(bookingColumns...).
		Order(goqu.I("b.created_at").Desc(), goqu.I("b.id").Asc())
}

func (a *BookingAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Booking, error) {
	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	bookings := make([]*entities.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bookings", err)
	}

	if err := a.attachHistory(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// attachHistory loads the ordered history of every booking in one query
func (a *BookingAdapter) attachHistory(ctx context.Context, bookings []*entities.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	byID := make(map[string]*entities.Booking, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	query, _, err := a.db.From(bookingHistoryTable).
		Select("booking_id", "status", "updated_at", "updated_by").
		Where(goqu.Ex{"booking_id": ids}).
		Order(goqu.I("booking_id").Asc(), goqu.I("seq").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build history query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return apperrors.NewInternalError("failed to load booking history", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID string
		var entry entities.StatusHistoryEntry
		if err := rows.Scan(&bookingID, &entry.Status, &entry.UpdatedAt, &entry.UpdatedBy); err != nil {
			return apperrors.NewInternalError("failed to scan booking history", err)
		}
		if b, ok := byID[bookingID]; ok {
			b.StatusHistory = append(b.StatusHistory, entry)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entities.Booking, error) {
	booking := &entities.Booking{}
	var notes sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.RestaurantID,
		&booking.TimeOfBooking,
		&booking.TimeSlot,
		&booking.PeopleQuantity,
		&booking.FullName,
		&booking.NumberPhone,
		&booking.Email,
		&notes,
		&booking.Status,
		&booking.Version,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Notes = notes.String
	booking.StatusHistory = make([]entities.StatusHistoryEntry, 0, booking.Version)
	return booking, nil
}

func historyRecord(bookingID string, seq int, entry entities.StatusHistoryEntry) goqu.Record {
	return goqu.Record{
		"booking_id": bookingID,
		"seq":        seq,
		"status":     string(entry.Status),
		"updated_at": entry.UpdatedAt,
		"updated_by": entry.UpdatedBy,
	}
}
