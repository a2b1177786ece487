package db

import (
	"github.com/jmoiron/sqlx"
)

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS activities (
			activity_id VARCHAR(64) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			capacity INT NOT NULL CHECK (capacity > 0),
			reserved_seats INT NOT NULL DEFAULT 0 CHECK (reserved_seats >= 0 AND reserved_seats <= capacity),
			price_amount VARCHAR(32) NOT NULL DEFAULT '',
			price_currency VARCHAR(3) NOT NULL DEFAULT '',
			registration_deadline TIMESTAMPTZ,
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ,
			status VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS bookings (
			booking_id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			activity_id VARCHAR(64) NOT NULL REFERENCES activities (activity_id),
			code VARCHAR(64) NOT NULL UNIQUE,
			status VARCHAR(32) NOT NULL,
			payment_status VARCHAR(32) NOT NULL,
			amount_due VARCHAR(32) NOT NULL DEFAULT '',
			currency VARCHAR(3) NOT NULL DEFAULT '',
			payment_method VARCHAR(64) NOT NULL DEFAULT '',
			transaction_ref VARCHAR(255) NOT NULL DEFAULT '',
			paid_at TIMESTAMPTZ,
			attended_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE UNIQUE INDEX IF NOT EXISTS bookings_one_active_per_user
			ON bookings (user_id, activity_id)
			WHERE status <> 'CANCELLED';

		CREATE INDEX IF NOT EXISTS bookings_activity_id ON bookings (activity_id);

		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(64) PRIMARY KEY,
			booking_id VARCHAR(64) NOT NULL UNIQUE REFERENCES bookings (booking_id),
			payload TEXT NOT NULL,
			signature VARCHAR(128) NOT NULL DEFAULT '',
			validated BOOLEAN NOT NULL DEFAULT FALSE,
			validated_at TIMESTAMPTZ,
			validated_by VARCHAR(255) NOT NULL DEFAULT '',
			issued_at TIMESTAMPTZ NOT NULL,
			valid_until TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS events (
			event_id VARCHAR(64) PRIMARY KEY,
			published_at TIMESTAMPTZ NOT NULL,
			event_name VARCHAR(255) NOT NULL,
			event_payload JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS events_booking_id ON events ((event_payload->>'booking_id'));
	`)
	return err
}
