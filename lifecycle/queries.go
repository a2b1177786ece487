package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"trips/entity"
)

func (l *Lifecycle) CreateActivity(ctx context.Context, cmd entity.CreateActivity) (entity.Activity, error) {
	title := strings.Join(strings.Fields(cmd.Title), " ")
	if title == "" {
		return entity.Activity{}, fmt.Errorf("%w: title is required", entity.ErrInvalidInput)
	}
	if cmd.Capacity <= 0 {
		return entity.Activity{}, fmt.Errorf("%w: capacity must be positive", entity.ErrInvalidInput)
	}
	if cmd.EndsAt != nil && cmd.EndsAt.Before(cmd.StartsAt) {
		return entity.Activity{}, fmt.Errorf("%w: activity ends before it starts", entity.ErrInvalidInput)
	}

	startsAt := cmd.StartsAt
	if startsAt.IsZero() {
		startsAt = l.now()
	}

	activity := entity.Activity{
		ActivityID:           uuid.NewString(),
		Title:                title,
		Capacity:             cmd.Capacity,
		PriceAmount:          cmd.Price.Amount,
		PriceCurrency:        cmd.Price.Currency,
		RegistrationDeadline: utc(cmd.RegistrationDeadline),
		StartsAt:             startsAt.UTC(),
		EndsAt:               utc(cmd.EndsAt),
		Status:               entity.ActivityStatusUpcoming,
		CreatedAt:            l.now(),
	}

	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		return tx.AddActivity(ctx, activity)
	})
	if err != nil {
		return entity.Activity{}, err
	}

	log.FromContext(ctx).WithField("activity_id", activity.ActivityID).Info("Activity created")
	return activity, nil
}

func (l *Lifecycle) Activity(ctx context.Context, activityID string) (entity.Activity, error) {
	var activity entity.Activity
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) (err error) {
		activity, err = tx.Activity(ctx, activityID)
		return err
	})
	return activity, err
}

func (l *Lifecycle) Booking(ctx context.Context, bookingID string) (entity.Booking, error) {
	var booking entity.Booking
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) (err error) {
		booking, err = tx.Booking(ctx, bookingID)
		return err
	})
	return booking, err
}

func (l *Lifecycle) BookingByCode(ctx context.Context, code string) (entity.Booking, error) {
	var booking entity.Booking
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) (err error) {
		booking, err = tx.BookingByCode(ctx, code)
		return err
	})
	return booking, err
}

func (l *Lifecycle) UserBookings(ctx context.Context, userID string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) (err error) {
		bookings, err = tx.BookingsByUser(ctx, userID)
		return err
	})
	return bookings, err
}

func (l *Lifecycle) ActivityBookings(ctx context.Context, activityID string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		if _, err := tx.Activity(ctx, activityID); err != nil {
			return err
		}

		var err error
		bookings, err = tx.BookingsByActivity(ctx, activityID)
		return err
	})
	return bookings, err
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
