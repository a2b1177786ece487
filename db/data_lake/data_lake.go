package data_lake

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	dbLib "trips/db"
	"trips/entity"
)

// DataLake keeps every published event as the audit log of the system.
type DataLake struct {
	db *sqlx.DB
}

func NewDataLake(db *sqlx.DB) DataLake {
	if db == nil {
		panic("db is nil")
	}

	return DataLake{db: db}
}

func (s DataLake) StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error {
	_, err := s.db.ExecContext(
		ctx,
		`
			INSERT INTO 
			    events (event_id, published_at, event_name, event_payload) 
			VALUES 
			    ($1, $2, $3, $4::jsonb)`,
		dataLakeEvent.ID,
		dataLakeEvent.PublishedAt,
		dataLakeEvent.Name,
		string(dataLakeEvent.Payload),
	)
	if dbLib.IsErrorUniqueViolation(err) {
		// handling re-delivery
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not store %s event in data lake: %w", dataLakeEvent.ID, err)
	}

	return nil
}

func (s DataLake) GetEvents(ctx context.Context) ([]entity.DataLakeEvent, error) {
	var events []entity.DataLakeEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT event_id, published_at, event_name, event_payload
		FROM events
		ORDER BY published_at ASC, event_id ASC
	`)
	if err != nil {
		return nil, dbLib.Unavailable("could not get events from data lake", err)
	}

	return events, nil
}

// BookingHistory returns the events of one booking, oldest first.
func (s DataLake) BookingHistory(ctx context.Context, bookingID string) ([]entity.DataLakeEvent, error) {
	var events []entity.DataLakeEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT event_id, published_at, event_name, event_payload
		FROM events
		WHERE event_payload->>'booking_id' = $1
		ORDER BY published_at ASC, event_id ASC
	`, bookingID)
	if err != nil {
		return nil, dbLib.Unavailable("could not get booking history", err)
	}

	return events, nil
}
