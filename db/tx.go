package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"trips/entity"
)

// UpdateInTx runs fn in a transaction. It commits when fn returns nil and rolls back otherwise.
func UpdateInTx(
	ctx context.Context,
	db *sqlx.DB,
	isolation sql.IsolationLevel,
	fn func(ctx context.Context, tx *sqlx.Tx) error,
) (err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return Unavailable("could not begin transaction", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
			return
		}

		if commitErr := tx.Commit(); commitErr != nil {
			err = Unavailable("could not commit transaction", commitErr)
		}
	}()

	return fn(ctx, tx)
}

// Unavailable marks a storage failure, so callers can tell it apart from a rejected operation.
func Unavailable(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, entity.ErrUnavailable, err)
}

func IsErrorUniqueViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code.Name() == "unique_violation"
}

// NotFoundOrUnavailable maps sql.ErrNoRows to entity.ErrNotFound and wraps any other failure as unavailable.
func NotFoundOrUnavailable(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, entity.ErrNotFound)
	}
	return Unavailable("could not get "+what, err)
}
