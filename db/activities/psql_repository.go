package activities

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"trips/db"
	"trips/entity"
)

const columns = `activity_id, title, capacity, reserved_seats, price_amount, price_currency,
	registration_deadline, starts_at, ends_at, status, created_at`

// PostgresRepository works inside the transaction it was created with.
type PostgresRepository struct {
	db sqlx.ExtContext
}

func NewPostgresRepository(db sqlx.ExtContext) PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return PostgresRepository{db: db}
}

func (r PostgresRepository) Add(ctx context.Context, activity entity.Activity) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `
		INSERT INTO activities (`+columns+`)
		VALUES (:activity_id, :title, :capacity, :reserved_seats, :price_amount, :price_currency,
			:registration_deadline, :starts_at, :ends_at, :status, :created_at)
	`, activity)
	if err != nil {
		return db.Unavailable("could not add activity", err)
	}

	return nil
}

// GetForUpdate reads the activity and locks its row until the transaction ends.
func (r PostgresRepository) GetForUpdate(ctx context.Context, activityID string) (entity.Activity, error) {
	var activity entity.Activity
	err := sqlx.GetContext(ctx, r.db, &activity, `
		SELECT `+columns+`
		FROM activities
		WHERE activity_id = $1
		FOR UPDATE
	`, activityID)
	if err != nil {
		return entity.Activity{}, db.NotFoundOrUnavailable(err, "activity "+activityID)
	}

	return activity, nil
}

func (r PostgresRepository) ReserveSeat(ctx context.Context, activityID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET reserved_seats = reserved_seats + 1
		WHERE activity_id = $1 AND reserved_seats < capacity
	`, activityID)
	if err != nil {
		return db.Unavailable("could not reserve seat", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return db.Unavailable("could not reserve seat", err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetForUpdate(ctx, activityID); err != nil {
			return err
		}
		return fmt.Errorf("activity %s: %w", activityID, entity.ErrCapacityExceeded)
	}

	return nil
}

func (r PostgresRepository) ReleaseSeat(ctx context.Context, activityID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET reserved_seats = GREATEST(reserved_seats - 1, 0)
		WHERE activity_id = $1
	`, activityID)
	if err != nil {
		return db.Unavailable("could not release seat", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return db.Unavailable("could not release seat", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("activity %s: %w", activityID, entity.ErrNotFound)
	}

	return nil
}

func (r PostgresRepository) UpdateStatus(ctx context.Context, activityID string, status entity.ActivityStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET status = $2
		WHERE activity_id = $1
	`, activityID, status)
	if err != nil {
		return db.Unavailable("could not update activity status", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return db.Unavailable("could not update activity status", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("activity %s: %w", activityID, entity.ErrNotFound)
	}

	return nil
}

// InStatusForUpdate locks the activities in one of statuses. Rows already locked
// by a booking in flight are skipped and picked up by a later call.
func (r PostgresRepository) InStatusForUpdate(ctx context.Context, statuses ...entity.ActivityStatus) ([]entity.Activity, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	var activities []entity.Activity
	err := sqlx.SelectContext(ctx, r.db, &activities, `
		SELECT `+columns+`
		FROM activities
		WHERE status = ANY($1)
		ORDER BY starts_at, activity_id
		FOR UPDATE SKIP LOCKED
	`, pq.Array(names))
	if err != nil {
		return nil, db.Unavailable("could not list activities", err)
	}

	return activities, nil
}
