package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"

	dbLib "trips/db"
	"trips/db/activities"
	"trips/db/bookings"
	"trips/db/tickets"
	"trips/entity"
	"trips/pubsub/bus"
	"trips/pubsub/outbox"
)

// PostgresStore runs every unit of work in one database transaction. Events
// published in it land in the outbox table and are forwarded once it commits.
type PostgresStore struct {
	db     *sqlx.DB
	logger watermill.LoggerAdapter
}

func NewPostgresStore(db *sqlx.DB, logger watermill.LoggerAdapter) PostgresStore {
	if db == nil {
		panic("db is nil")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return PostgresStore{db: db, logger: logger}
}

func (s PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx entity.Tx) error) error {
	return dbLib.UpdateInTx(ctx, s.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		publisher, err := outbox.NewPublisherForTx(tx.Tx, s.logger)
		if err != nil {
			return err
		}

		eventBus, err := bus.NewEventBus(publisher)
		if err != nil {
			return fmt.Errorf("could not create event bus: %w", err)
		}

		return fn(ctx, postgresTx{
			activities: activities.NewPostgresRepository(tx),
			bookings:   bookings.NewPostgresRepository(tx),
			tickets:    tickets.NewPostgresRepository(tx),
			eventBus:   eventBus,
		})
	})
}

type eventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type postgresTx struct {
	activities activities.PostgresRepository
	bookings   bookings.PostgresRepository
	tickets    tickets.PostgresRepository
	eventBus   eventPublisher
}

func (t postgresTx) AddActivity(ctx context.Context, activity entity.Activity) error {
	return t.activities.Add(ctx, activity)
}

func (t postgresTx) Activity(ctx context.Context, activityID string) (entity.Activity, error) {
	return t.activities.GetForUpdate(ctx, activityID)
}

func (t postgresTx) ReserveSeat(ctx context.Context, activityID string) error {
	return t.activities.ReserveSeat(ctx, activityID)
}

func (t postgresTx) ReleaseSeat(ctx context.Context, activityID string) error {
	return t.activities.ReleaseSeat(ctx, activityID)
}

func (t postgresTx) UpdateActivityStatus(ctx context.Context, activityID string, status entity.ActivityStatus) error {
	return t.activities.UpdateStatus(ctx, activityID, status)
}

func (t postgresTx) ActivitiesInStatus(ctx context.Context, statuses ...entity.ActivityStatus) ([]entity.Activity, error) {
	return t.activities.InStatusForUpdate(ctx, statuses...)
}

func (t postgresTx) HasActiveBooking(ctx context.Context, userID, activityID string) (bool, error) {
	return t.bookings.HasActive(ctx, userID, activityID)
}

func (t postgresTx) AddBooking(ctx context.Context, booking entity.Booking) error {
	return t.bookings.Add(ctx, booking)
}

func (t postgresTx) Booking(ctx context.Context, bookingID string) (entity.Booking, error) {
	return t.bookings.GetForUpdate(ctx, bookingID)
}

func (t postgresTx) BookingByCode(ctx context.Context, code string) (entity.Booking, error) {
	return t.bookings.GetByCodeForUpdate(ctx, code)
}

func (t postgresTx) UpdateBooking(ctx context.Context, booking entity.Booking) error {
	return t.bookings.Update(ctx, booking)
}

func (t postgresTx) BookingsByUser(ctx context.Context, userID string) ([]entity.Booking, error) {
	return t.bookings.ByUser(ctx, userID)
}

func (t postgresTx) BookingsByActivity(ctx context.Context, activityID string) ([]entity.Booking, error) {
	return t.bookings.ByActivity(ctx, activityID)
}

func (t postgresTx) TicketByBooking(ctx context.Context, bookingID string) (entity.Ticket, error) {
	return t.tickets.ByBooking(ctx, bookingID)
}

func (t postgresTx) AddTicket(ctx context.Context, ticket entity.Ticket) error {
	return t.tickets.Add(ctx, ticket)
}

func (t postgresTx) UpdateTicket(ctx context.Context, ticket entity.Ticket) error {
	return t.tickets.Update(ctx, ticket)
}

func (t postgresTx) Publish(ctx context.Context, event any) error {
	if err := t.eventBus.Publish(ctx, event); err != nil {
		return dbLib.Unavailable("could not publish event", err)
	}
	return nil
}
