package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"trips/entity"
)

// CancelActivity cancels the activity and every booking that still holds a seat on it.
// Paid bookings are flagged for refund. Cancelling a cancelled activity changes nothing.
func (l *Lifecycle) CancelActivity(ctx context.Context, activityID string) (entity.Activity, error) {
	var (
		activity  entity.Activity
		cancelled int
		noop      bool
	)
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		var err error
		activity, err = tx.Activity(ctx, activityID)
		if err != nil {
			return err
		}

		switch activity.Status {
		case entity.ActivityStatusCancelled:
			noop = true
			return nil
		case entity.ActivityStatusCompleted:
			return fmt.Errorf("%w: activity %s is already completed", entity.ErrInvalidTransition, activityID)
		}

		bookings, err := tx.BookingsByActivity(ctx, activityID)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if !cancellable(b) {
				continue
			}

			booking, err := tx.Booking(ctx, b.BookingID)
			if err != nil {
				return err
			}
			if !cancellable(booking) {
				continue
			}

			booking, err = l.cancel(ctx, tx, booking, true)
			if err != nil {
				return err
			}
			if err := tx.UpdateBooking(ctx, booking); err != nil {
				return err
			}
			cancelled++
		}

		if err := tx.UpdateActivityStatus(ctx, activityID, entity.ActivityStatusCancelled); err != nil {
			return err
		}
		if activity, err = tx.Activity(ctx, activityID); err != nil {
			return err
		}

		return tx.Publish(ctx, entity.ActivityCancelled{
			Header:            entity.NewEventHeaderWithIdempotencyKey("cancel-activity-" + activityID),
			ActivityID:        activityID,
			Title:             activity.Title,
			CancelledBookings: cancelled,
		})
	})
	if err != nil {
		return entity.Activity{}, err
	}

	entry := log.FromContext(ctx).WithField("activity_id", activityID)
	if noop {
		entry.Info("Activity already cancelled")
		return activity, nil
	}
	entry.WithField("cancelled_bookings", cancelled).Info("Activity cancelled")
	return activity, nil
}

func cancellable(b entity.Booking) bool {
	return b.Status == entity.BookingStatusPendingPayment || b.Status == entity.BookingStatusConfirmed
}

// AdvanceActivityStatuses moves upcoming and ongoing activities to the status their
// schedule gives them at the current time. It returns the number of activities changed.
func (l *Lifecycle) AdvanceActivityStatuses(ctx context.Context) (int, error) {
	var changed []entity.Activity
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		changed = nil

		activities, err := tx.ActivitiesInStatus(ctx, entity.ActivityStatusUpcoming, entity.ActivityStatusOngoing)
		if err != nil {
			return err
		}

		now := l.now()
		for _, activity := range activities {
			next := activity.ScheduledStatus(now)
			if next == activity.Status {
				continue
			}
			if err := tx.UpdateActivityStatus(ctx, activity.ActivityID, next); err != nil {
				return err
			}
			activity.Status = next
			changed = append(changed, activity)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, activity := range changed {
		log.FromContext(ctx).WithFields(logrus.Fields{
			"activity_id": activity.ActivityID,
			"status":      activity.Status,
		}).Info("Activity status advanced")
	}
	return len(changed), nil
}

// RunActivityStatusSweep advances activity statuses every interval until ctx is done.
func (l *Lifecycle) RunActivityStatusSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := l.AdvanceActivityStatuses(ctx); err != nil {
				log.FromContext(ctx).WithError(err).Error("Could not advance activity statuses")
			}
		}
	}
}
