package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"trips/db/memory"
	"trips/entity"
	"trips/lifecycle"
	"trips/mocks"
)

type fixture struct {
	lifecycle *lifecycle.Lifecycle
	events    *mocks.EventPublisher
	now       time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	events := &mocks.EventPublisher{}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := lifecycle.New(memory.NewStore(events)).WithClock(func() time.Time { return now })

	return fixture{lifecycle: l, events: events, now: now}
}

func (f fixture) activity(t *testing.T, capacity int, deadline *time.Time) entity.Activity {
	t.Helper()

	activity, err := f.lifecycle.CreateActivity(context.Background(), entity.CreateActivity{
		Title:                "Trip to Charyn Canyon",
		Capacity:             capacity,
		Price:                entity.Money{Amount: "15000", Currency: "KZT"},
		RegistrationDeadline: deadline,
		StartsAt:             f.now.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return activity
}

func (f fixture) reservedSeats(t *testing.T, activityID string) int {
	t.Helper()

	activity, err := f.lifecycle.Activity(context.Background(), activityID)
	require.NoError(t, err)
	return activity.ReservedSeats
}

func TestLifecycle_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 10, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)

	assert.NotEmpty(t, booking.BookingID)
	assert.NotEmpty(t, booking.Code)
	assert.Equal(t, "user-1", booking.UserID)
	assert.Equal(t, entity.BookingStatusPendingPayment, booking.Status)
	assert.Equal(t, entity.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, entity.Money{Amount: "15000", Currency: "KZT"}, booking.Amount())
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))

	created := mocks.EventsOfType[entity.BookingCreated](f.events)
	require.Len(t, created, 1)
	assert.Equal(t, booking.BookingID, created[0].BookingID)

	byCode, err := f.lifecycle.BookingByCode(ctx, booking.Code)
	require.NoError(t, err)
	assert.Equal(t, booking, byCode)
}

func TestLifecycle_Create_preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	past := f.now.Add(-time.Hour)
	closed := f.activity(t, 10, &past)
	full := f.activity(t, 1, nil)
	_, err := f.lifecycle.Create(ctx, "someone-else", full.ActivityID)
	require.NoError(t, err)

	_, err = f.lifecycle.Create(ctx, "user-1", uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = f.lifecycle.Create(ctx, "user-1", closed.ActivityID)
	assert.ErrorIs(t, err, entity.ErrDeadlinePassed)
	assert.Equal(t, 0, f.reservedSeats(t, closed.ActivityID))

	_, err = f.lifecycle.Create(ctx, "user-1", full.ActivityID)
	assert.ErrorIs(t, err, entity.ErrCapacityExceeded)
	assert.Equal(t, 1, f.reservedSeats(t, full.ActivityID))

	bookings, err := f.lifecycle.UserBookings(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestLifecycle_Create_duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 10, nil)

	_, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)

	_, err = f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.ErrorIs(t, err, entity.ErrDuplicateBooking)

	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))

	bookings, err := f.lifecycle.ActivityBookings(ctx, activity.ActivityID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestLifecycle_Create_after_cancel_is_not_duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 10, nil)

	first, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)
	_, err = f.lifecycle.Cancel(ctx, first.BookingID, "user-1")
	require.NoError(t, err)

	second, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, second.Code)
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))
}

func TestLifecycle_Create_concurrent_last_seat(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 1, nil)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.lifecycle.Create(ctx, uuid.NewString(), activity.ActivityID)
		}(i)
	}
	wg.Wait()

	succeeded, soldOut := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, entity.ErrCapacityExceeded):
			soldOut++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, soldOut)
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))
}

func TestLifecycle_seat_invariant_under_load(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 5, nil)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.NewString()
			booking, err := f.lifecycle.Create(ctx, userID, activity.ActivityID)
			if err != nil {
				return
			}
			_, err = f.lifecycle.Cancel(ctx, booking.BookingID, userID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	reserved := f.reservedSeats(t, activity.ActivityID)
	assert.Equal(t, 0, reserved)
}

func TestLifecycle_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 3, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)
	require.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))

	_, err = f.lifecycle.Cancel(ctx, booking.BookingID, "user-2")
	require.ErrorIs(t, err, entity.ErrUnauthorized)
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))

	cancelled, err := f.lifecycle.Cancel(ctx, booking.BookingID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, entity.PaymentStatusPending, cancelled.PaymentStatus)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 0, f.reservedSeats(t, activity.ActivityID))

	again, err := f.lifecycle.Cancel(ctx, booking.BookingID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cancelled, again)
	assert.Equal(t, 0, f.reservedSeats(t, activity.ActivityID))

	events := mocks.EventsOfType[entity.BookingCancelled](f.events)
	require.Len(t, events, 1)
	assert.False(t, events[0].RefundRequired)

	_, err = f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "card", "tx-1")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestLifecycle_Cancel_paid_booking_requests_refund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 3, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)
	_, err = f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "card", "tx-42")
	require.NoError(t, err)

	cancelled, err := f.lifecycle.Cancel(ctx, booking.BookingID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, 0, f.reservedSeats(t, activity.ActivityID))

	events := mocks.EventsOfType[entity.BookingCancelled](f.events)
	require.Len(t, events, 1)
	assert.True(t, events[0].RefundRequired)
	assert.Equal(t, "tx-42", events[0].TransactionRef)
	assert.Equal(t, booking.Amount(), events[0].RefundAmount)
}

func TestLifecycle_Cancel_attended_booking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 3, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)
	_, err = f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "card", "tx-1")
	require.NoError(t, err)
	_, err = f.lifecycle.MarkAttended(ctx, booking.BookingID, "staff-1")
	require.NoError(t, err)

	_, err = f.lifecycle.Cancel(ctx, booking.BookingID, "user-1")
	require.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))
}

func TestLifecycle_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 3, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)

	confirmed, err := f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "card", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, entity.PaymentStatusCompleted, confirmed.PaymentStatus)
	assert.Equal(t, "card", confirmed.PaymentMethod)
	assert.Equal(t, "tx-1", confirmed.TransactionRef)
	require.NotNil(t, confirmed.PaidAt)
	assert.Equal(t, f.now, *confirmed.PaidAt)

	_, err = f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "card", "tx-2")
	require.ErrorIs(t, err, entity.ErrInvalidTransition)

	stored, err := f.lifecycle.Booking(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", stored.TransactionRef)

	assert.Len(t, mocks.EventsOfType[entity.BookingConfirmed](f.events), 1)

	_, err = f.lifecycle.ConfirmPayment(ctx, uuid.NewString(), "card", "tx-3")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestLifecycle_RecordPaymentFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 3, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)

	failed, err := f.lifecycle.RecordPaymentFailure(ctx, booking.BookingID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPendingPayment, failed.Status)
	assert.Equal(t, entity.PaymentStatusFailed, failed.PaymentStatus)
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))

	confirmed, err := f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "card", "tx-retry")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, confirmed.PaymentStatus)

	_, err = f.lifecycle.RecordPaymentFailure(ctx, booking.BookingID, "late failure")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestLifecycle_MarkAttended(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 3, nil)

	booking, err := f.lifecycle.Create(ctx, "user-1", activity.ActivityID)
	require.NoError(t, err)

	_, err = f.lifecycle.MarkAttended(ctx, booking.BookingID, "staff-1")
	require.ErrorIs(t, err, entity.ErrInvalidTransition, "unpaid booking cannot be attended")

	_, err = f.lifecycle.ConfirmPayment(ctx, booking.BookingID, "cash", "")
	require.NoError(t, err)

	attended, err := f.lifecycle.MarkAttended(ctx, booking.BookingID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusAttended, attended.Status)
	require.NotNil(t, attended.AttendedAt)

	_, err = f.lifecycle.MarkAttended(ctx, booking.BookingID, "staff-1")
	require.ErrorIs(t, err, entity.ErrInvalidTransition, "no double check-in")
}

func TestLifecycle_scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activity := f.activity(t, 2, nil)

	u1, err := f.lifecycle.Create(ctx, "U1", activity.ActivityID)
	require.NoError(t, err)
	u2, err := f.lifecycle.Create(ctx, "U2", activity.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPendingPayment, u1.Status)
	assert.Equal(t, entity.BookingStatusPendingPayment, u2.Status)
	assert.Equal(t, 2, f.reservedSeats(t, activity.ActivityID))

	_, err = f.lifecycle.Create(ctx, "U3", activity.ActivityID)
	require.ErrorIs(t, err, entity.ErrCapacityExceeded)

	_, err = f.lifecycle.Cancel(ctx, u1.BookingID, "U1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.reservedSeats(t, activity.ActivityID))

	u3, err := f.lifecycle.Create(ctx, "U3", activity.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPendingPayment, u3.Status)
	assert.Equal(t, 2, f.reservedSeats(t, activity.ActivityID))
}

func TestLifecycle_CreateActivity_validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.lifecycle.CreateActivity(ctx, entity.CreateActivity{Title: "  ", Capacity: 1})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = f.lifecycle.CreateActivity(ctx, entity.CreateActivity{Title: "Hike", Capacity: 0})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	ends := f.now.Add(-time.Hour)
	_, err = f.lifecycle.CreateActivity(ctx, entity.CreateActivity{Title: "Hike", Capacity: 1, StartsAt: f.now, EndsAt: &ends})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	activity, err := f.lifecycle.CreateActivity(ctx, entity.CreateActivity{Title: "  Big   Almaty  Lake ", Capacity: 4})
	require.NoError(t, err)
	assert.Equal(t, "Big Almaty Lake", activity.Title)
	assert.Equal(t, entity.ActivityStatusUpcoming, activity.Status)
	assert.Equal(t, 0, activity.ReservedSeats)
}
