package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the booking store tables. Statements are idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		concept_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              TEXT PRIMARY KEY,
		customer_id     TEXT NOT NULL,
		restaurant_id   TEXT NOT NULL,
		time_of_booking TEXT NOT NULL,
		time_slot       TEXT NOT NULL,
		people_quantity INTEGER NOT NULL CHECK (people_quantity > 0),
		full_name       TEXT NOT NULL,
		number_phone    TEXT NOT NULL,
		email           TEXT NOT NULL,
		notes           TEXT,
		status          TEXT NOT NULL,
		version         INTEGER NOT NULL DEFAULT 1,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_created ON bookings (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_schedule ON bookings (status, time_of_booking, time_slot)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings (customer_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS booking_status_history (
		booking_id TEXT NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		status     TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		updated_by TEXT NOT NULL,
		PRIMARY KEY (booking_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_history_status_time ON booking_status_history (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id               TEXT PRIMARY KEY,
		recipient_id     TEXT NOT NULL,
		restaurant_id    TEXT NOT NULL,
		title            TEXT NOT NULL,
		message          TEXT NOT NULL,
		customer         TEXT NOT NULL,
		type             TEXT NOT NULL,
		number_of_guests INTEGER NOT NULL,
		booking_date     TEXT NOT NULL,
		read             BOOLEAN NOT NULL DEFAULT FALSE,
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, created_at DESC)`,
}

// Migrate creates the tables used by the PostgreSQL adapters
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
