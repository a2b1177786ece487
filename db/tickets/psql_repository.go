package tickets

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"trips/db"
	"trips/entity"
)

const columns = `ticket_id, booking_id, payload, signature, validated, validated_at, validated_by, issued_at, valid_until`

type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewPostgresRepository(db sqlx.ExtContext) PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return PostgresRepository{db: db}
}

func (r PostgresRepository) ByBooking(ctx context.Context, bookingID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := sqlx.GetContext(ctx, r.db, &ticket, `
		SELECT `+columns+`
		FROM tickets
		WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return entity.Ticket{}, db.NotFoundOrUnavailable(err, "ticket for booking "+bookingID)
	}

	return ticket, nil
}

func (r PostgresRepository) Add(ctx context.Context, ticket entity.Ticket) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO tickets (`+columns+`)
		VALUES (:ticket_id, :booking_id, :payload, :signature, :validated, :validated_at, :validated_by, :issued_at, :valid_until)
	`, ticket)
	if db.IsErrorUniqueViolation(err) {
		return fmt.Errorf("ticket for booking %s already exists", ticket.BookingID)
	}
	if err != nil {
		return db.Unavailable("could not add ticket", err)
	}

	return nil
}

func (r PostgresRepository) Update(ctx context.Context, ticket entity.Ticket) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `
		UPDATE tickets
		SET validated = :validated,
			validated_at = :validated_at,
			validated_by = :validated_by
		WHERE booking_id = :booking_id
	`, ticket)
	if err != nil {
		return db.Unavailable("could not update ticket", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return db.Unavailable("could not update ticket", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ticket for booking %s: %w", ticket.BookingID, entity.ErrNotFound)
	}

	return nil
}
