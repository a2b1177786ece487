package bookings

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"trips/db"
	"trips/entity"
)

const columns = `booking_id, user_id, activity_id, code, status, payment_status, amount_due, currency,
	payment_method, transaction_ref, paid_at, attended_at, cancelled_at, created_at`

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewPostgresRepository(db sqlx.ExtContext) PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return PostgresRepository{db: db}
}

// Add stores a new booking. A second active booking of the same user for the
// same activity is refused by the unique index and reported as entity.ErrDuplicateBooking.
func (r PostgresRepository) Add(ctx context.Context, booking entity.Booking) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO bookings (`+columns+`)
		VALUES (:booking_id, :user_id, :activity_id, :code, :status, :payment_status, :amount_due, :currency,
			:payment_method, :transaction_ref, :paid_at, :attended_at, :cancelled_at, :created_at)
	`, booking)
	if db.IsErrorUniqueViolation(err) {
		return fmt.Errorf("booking %s: %w", booking.BookingID, entity.ErrDuplicateBooking)
	}
	if err != nil {
		return db.Unavailable("could not add booking", err)
	}

	return nil
}

func (r PostgresRepository) HasActive(ctx context.Context, userID, activityID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND activity_id = $2 AND status <> $3
		)
	`, userID, activityID, entity.BookingStatusCancelled)
	if err != nil {
		return false, db.Unavailable("could not check bookings", err)
	}

	return exists, nil
}

// GetForUpdate reads the booking and locks its row until the transaction ends.
func (r PostgresRepository) GetForUpdate(ctx context.Context, bookingID string) (entity.Booking, error) {
	var booking entity.Booking
	err := sqlx.GetContext(ctx, r.db, &booking, `
		SELECT `+columns+`
		FROM bookings
		WHERE booking_id = $1
		FOR UPDATE
	`, bookingID)
	if err != nil {
		return entity.Booking{}, db.NotFoundOrUnavailable(err, "booking "+bookingID)
	}

	return booking, nil
}

func (r PostgresRepository) GetByCodeForUpdate(ctx context.Context, code string) (entity.Booking, error) {
	var booking entity.Booking
	err := sqlx.GetContext(ctx, r.db, &booking, `
		SELECT `+columns+`
		FROM bookings
		WHERE code = $1
		FOR UPDATE
	`, code)
	if err != nil {
		return entity.Booking{}, db.NotFoundOrUnavailable(err, "booking with code "+code)
	}

	return booking, nil
}

func (r PostgresRepository) Update(ctx context.Context, booking entity.Booking) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `
		UPDATE bookings
		SET status = :status,
			payment_status = :payment_status,
			payment_method = :payment_method,
			transaction_ref = :transaction_ref,
			paid_at = :paid_at,
			attended_at = :attended_at,
			cancelled_at = :cancelled_at
		WHERE booking_id = :booking_id
	`, booking)
	if db.IsErrorUniqueViolation(err) {
		return fmt.Errorf("booking %s: %w", booking.BookingID, entity.ErrDuplicateBooking)
	}
	if err != nil {
		return db.Unavailable("could not update booking", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return db.Unavailable("could not update booking", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("booking %s: %w", booking.BookingID, entity.ErrNotFound)
	}

	return nil
}

func (r PostgresRepository) ByUser(ctx context.Context, userID string) ([]entity.Booking, error) {
	return r.list(ctx, "user_id", userID)
}

func (r PostgresRepository) ByActivity(ctx context.Context, activityID string) ([]entity.Booking, error) {
	return r.list(ctx, "activity_id", activityID)
}

func (r PostgresRepository) list(ctx context.Context, column, value string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := sqlx.SelectContext(ctx, r.db, &bookings, `
		SELECT `+columns+`
		FROM bookings
		WHERE `+column+` = $1
		ORDER BY created_at, booking_id
	`, value)
	if err != nil {
		return nil, db.Unavailable("could not list bookings", err)
	}

	return bookings, nil
}
