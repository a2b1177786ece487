package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"trips/entity"
	"trips/metrics"
)

type SeatStore interface {
	Activity(ctx context.Context, activityID string) (entity.Activity, error)
	ReserveSeat(ctx context.Context, activityID string) error
	ReleaseSeat(ctx context.Context, activityID string) error
}

// SeatLedger keeps the reserved seat count of activities. Reservations and
// releases are atomic per activity; the store provides the locking.
type SeatLedger struct {
	store SeatStore
}

func New(store SeatStore) SeatLedger {
	if store == nil {
		panic("missing seat store")
	}

	return SeatLedger{store: store}
}

// Available returns how many seats can still be reserved.
func (l SeatLedger) Available(ctx context.Context, activityID string) (int, error) {
	activity, err := l.store.Activity(ctx, activityID)
	if err != nil {
		return 0, err
	}
	return activity.RemainingSeats(), nil
}

// Reserve takes one seat, or fails with entity.ErrCapacityExceeded leaving the count untouched.
func (l SeatLedger) Reserve(ctx context.Context, activityID string) error {
	err := l.store.ReserveSeat(ctx, activityID)
	if errors.Is(err, entity.ErrCapacityExceeded) {
		metrics.SoldOut.Inc()
		log.FromContext(ctx).WithField("activity_id", activityID).Info("Activity is full")
		return err
	}
	if err != nil {
		return fmt.Errorf("could not reserve seat for activity %s: %w", activityID, err)
	}

	metrics.SeatsReserved.Inc()
	return nil
}

// Release gives one seat back. Releasing with no seats reserved is a no-op.
func (l SeatLedger) Release(ctx context.Context, activityID string) error {
	if err := l.store.ReleaseSeat(ctx, activityID); err != nil {
		return fmt.Errorf("could not release seat for activity %s: %w", activityID, err)
	}

	metrics.SeatsReleased.Inc()
	return nil
}
