package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"trips/db/memory"
	"trips/entity"
	"trips/lifecycle"
	"trips/mocks"
)

type movingClock struct {
	now time.Time
}

func (c *movingClock) Now() time.Time {
	return c.now
}

func newClockFixture(t *testing.T) (fixture, *movingClock) {
	t.Helper()

	events := &mocks.EventPublisher{}
	clock := &movingClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	l := lifecycle.New(memory.NewStore(events)).WithClock(clock.Now)

	return fixture{lifecycle: l, events: events, now: clock.now}, clock
}

func TestLifecycle_CancelActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 10, nil)

	pending, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)
	paid, err := f.lifecycle.Create(ctx, "user-2", activity.ActivityID)
	require.NoError(t, err)
	_, err = f.lifecycle.ConfirmPayment(ctx, paid.BookingID, "card", "tx-1")
	require.NoError(t, err)
	withdrawn, err := f.lifecycle.Create(ctx, "user-3", activity.ActivityID)
	require.NoError(t, err)
	_, err = f.lifecycle.Cancel(ctx, withdrawn.BookingID, "user-3")
	require.NoError(t, err)
	require.Equal(t, 2, f.reservedSeats(t, activity.ActivityID))

	cancelled, err := f.lifecycle.CancelActivity(ctx, activity.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, entity.ActivityStatusCancelled, cancelled.Status)
	assert.Equal(t, 0, cancelled.ReservedSeats)

	pending, err = f.lifecycle.Booking(ctx, pending.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, pending.Status)
	assert.Equal(t, entity.PaymentStatusPending, pending.PaymentStatus)

	paid, err = f.lifecycle.Booking(ctx, paid.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, paid.Status)
	assert.Equal(t, entity.PaymentStatusRefunded, paid.PaymentStatus)

	bookingsCancelled := mocks.EventsOfType[entity.BookingCancelled](f.events)
	require.Len(t, bookingsCancelled, 3)
	byBooking := map[string]entity.BookingCancelled{}
	for _, e := range bookingsCancelled {
		byBooking[e.BookingID] = e
	}
	assert.False(t, byBooking[withdrawn.BookingID].ActivityCancelled)
	assert.True(t, byBooking[pending.BookingID].ActivityCancelled)
	assert.False(t, byBooking[pending.BookingID].RefundRequired)
	assert.True(t, byBooking[paid.BookingID].ActivityCancelled)
	assert.True(t, byBooking[paid.BookingID].RefundRequired)

	activityCancelled := mocks.EventsOfType[entity.ActivityCancelled](f.events)
	require.Len(t, activityCancelled, 1)
	assert.Equal(t, activity.ActivityID, activityCancelled[0].ActivityID)
	assert.Equal(t, 2, activityCancelled[0].CancelledBookings)

	_, err = f.lifecycle.Create(ctx, "user-4", activity.ActivityID)
	assert.ErrorIs(t, err, entity.ErrDeadlinePassed)
	assert.Equal(t, 0, f.reservedSeats(t, activity.ActivityID))

	again, err := f.lifecycle.CancelActivity(ctx, activity.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, cancelled, again)
	assert.Len(t, mocks.EventsOfType[entity.ActivityCancelled](f.events), 1)
}

func TestLifecycle_CancelActivity_not_found(t *testing.T) {
	f := newFixture(t)

	_, err := f.lifecycle.CancelActivity(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestLifecycle_AdvanceActivityStatuses(t *testing.T) {
	ctx := context.Background()
	f, clock := newClockFixture(t)
	activity := f.activity(t, 10, nil)
	later := f.activity(t, 10, nil)
	cancelled := f.activity(t, 10, nil)
	_, err := f.lifecycle.CancelActivity(ctx, cancelled.ActivityID)
	require.NoError(t, err)

	_, err = f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)

	changed, err := f.lifecycle.AdvanceActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	clock.now = activity.StartsAt.Add(time.Hour)
	changed, err = f.lifecycle.AdvanceActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	ongoing, err := f.lifecycle.Activity(ctx, activity.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, entity.ActivityStatusOngoing, ongoing.Status)

	_, err = f.lifecycle.Create(ctx, "user-2", activity.ActivityID)
	require.NoError(t, err, "an ongoing activity still takes bookings")

	clock.now = activity.End().Add(time.Minute)
	changed, err = f.lifecycle.AdvanceActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	completed, err := f.lifecycle.Activity(ctx, activity.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, entity.ActivityStatusCompleted, completed.Status)
	assert.Equal(t, 2, completed.ReservedSeats)

	_, err = f.lifecycle.Create(ctx, "user-3", activity.ActivityID)
	assert.ErrorIs(t, err, entity.ErrDeadlinePassed)

	_, err = f.lifecycle.CancelActivity(ctx, later.ActivityID)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	stillCancelled, err := f.lifecycle.Activity(ctx, cancelled.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, entity.ActivityStatusCancelled, stillCancelled.Status)

	changed, err = f.lifecycle.AdvanceActivityStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestLifecycle_RunActivityStatusSweep(t *testing.T) {
	defer goleak.VerifyNone(t)

	f, clock := newClockFixture(t)
	activity := f.activity(t, 10, nil)
	clock.now = activity.StartsAt

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- f.lifecycle.RunActivityStatusSweep(ctx, time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		a, err := f.lifecycle.Activity(context.Background(), activity.ActivityID)
		return err == nil && a.Status == entity.ActivityStatusOngoing
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
