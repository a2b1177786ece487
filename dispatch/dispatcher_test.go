package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"trips/db/memory"
	"trips/dispatch"
	"trips/entity"
	"trips/lifecycle"
	"trips/mocks"
	"trips/ticketing"
)

func newDispatcher(t *testing.T) (dispatch.Dispatcher, *mocks.EventPublisher) {
	t.Helper()

	events := &mocks.EventPublisher{}
	store := memory.NewStore(events)
	l := lifecycle.New(store)
	issuer := ticketing.NewIssuer(store, l, ticketing.Signed(ticketing.PlainCodec{}, "secret"))

	return dispatch.New(l, issuer), events
}

func createActivity(t *testing.T, d dispatch.Dispatcher, capacity int) entity.Activity {
	t.Helper()

	result, err := d.Dispatch(context.Background(), entity.CreateActivity{
		Title:    "Issyk-Kul weekend",
		Capacity: capacity,
		Price:    entity.Money{Amount: "100", Currency: "USD"},
	})
	require.NoError(t, err)
	return result.(entity.Activity)
}

func TestDispatcher_booking_flow(t *testing.T) {
	ctx := context.Background()
	d, _ := newDispatcher(t)
	activity := createActivity(t, d, 5)

	result, err := d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: "user-1"})
	require.NoError(t, err)
	booking := result.(entity.Booking)

	result, err = d.Dispatch(ctx, entity.ConfirmPayment{BookingID: booking.BookingID, Method: "card", TransactionRef: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, result.(entity.Booking).Status)

	// the ticket was pre-issued on confirmation, issuing returns the same one
	result, err = d.Dispatch(ctx, entity.IssueTicket{BookingID: booking.BookingID})
	require.NoError(t, err)
	ticket := result.(entity.Ticket)

	result, err = d.Dispatch(ctx, entity.IssueTicket{BookingID: booking.BookingID})
	require.NoError(t, err)
	assert.Equal(t, ticket.Payload, result.(entity.Ticket).Payload)

	_, err = d.Dispatch(ctx, entity.ValidateTicket{Payload: ticket.Payload, ValidatedBy: "staff"})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, entity.ValidateTicket{Payload: ticket.Payload, ValidatedBy: "staff"})
	assert.ErrorIs(t, err, entity.ErrTicketAlreadyUsed)

	result, err = d.Dispatch(ctx, entity.GetBooking{BookingID: booking.BookingID})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusAttended, result.(entity.Booking).Status)

	result, err = d.Dispatch(ctx, entity.ListUserBookings{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, result.([]entity.Booking), 1)

	result, err = d.Dispatch(ctx, entity.ListActivityBookings{ActivityID: activity.ActivityID})
	require.NoError(t, err)
	assert.Len(t, result.([]entity.Booking), 1)

	result, err = d.Dispatch(ctx, entity.GetActivity{ActivityID: activity.ActivityID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.(entity.Activity).ReservedSeats)
}

func TestDispatcher_cancel_and_payment_failure(t *testing.T) {
	ctx := context.Background()
	d, _ := newDispatcher(t)
	activity := createActivity(t, d, 1)

	result, err := d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: "user-1"})
	require.NoError(t, err)
	booking := result.(entity.Booking)

	result, err = d.Dispatch(ctx, entity.RecordPaymentFailure{BookingID: booking.BookingID, Reason: "declined"})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, result.(entity.Booking).PaymentStatus)

	_, err = d.Dispatch(ctx, entity.CancelBooking{BookingID: booking.BookingID, UserID: "user-2"})
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	result, err = d.Dispatch(ctx, entity.CancelBooking{BookingID: booking.BookingID, UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, result.(entity.Booking).Status)

	_, err = d.Dispatch(ctx, entity.MarkAttended{BookingID: booking.BookingID})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestDispatcher_check_in_validates_issued_ticket(t *testing.T) {
	ctx := context.Background()
	d, events := newDispatcher(t)
	activity := createActivity(t, d, 5)

	result, err := d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: "user-1"})
	require.NoError(t, err)
	booking := result.(entity.Booking)

	_, err = d.Dispatch(ctx, entity.ConfirmPayment{BookingID: booking.BookingID, Method: "card", TransactionRef: "tx-1"})
	require.NoError(t, err)

	result, err = d.Dispatch(ctx, entity.MarkAttended{BookingID: booking.BookingID, CheckedInBy: "staff-1"})
	require.NoError(t, err)
	attended := result.(entity.Booking)
	assert.Equal(t, entity.BookingStatusAttended, attended.Status)

	result, err = d.Dispatch(ctx, entity.IssueTicket{BookingID: booking.BookingID})
	require.NoError(t, err)
	ticket := result.(entity.Ticket)
	assert.True(t, ticket.Validated)
	assert.Equal(t, "staff-1", ticket.ValidatedBy)
	require.NotNil(t, ticket.ValidatedAt)
	assert.Equal(t, *attended.AttendedAt, *ticket.ValidatedAt)

	validated := mocks.EventsOfType[entity.TicketValidated](events)
	require.Len(t, validated, 1)
	assert.Equal(t, ticket.TicketID, validated[0].TicketID)

	_, err = d.Dispatch(ctx, entity.ValidateTicket{Payload: ticket.Payload, ValidatedBy: "staff-2"})
	assert.ErrorIs(t, err, entity.ErrTicketAlreadyUsed)
}

func TestDispatcher_cancel_activity(t *testing.T) {
	ctx := context.Background()
	d, events := newDispatcher(t)
	activity := createActivity(t, d, 5)

	_, err := d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: "user-1"})
	require.NoError(t, err)

	result, err := d.Dispatch(ctx, entity.CancelActivity{ActivityID: activity.ActivityID})
	require.NoError(t, err)
	assert.Equal(t, entity.ActivityStatusCancelled, result.(entity.Activity).Status)

	cancelled := mocks.EventsOfType[entity.ActivityCancelled](events)
	require.Len(t, cancelled, 1)
	assert.Equal(t, 1, cancelled[0].CancelledBookings)

	_, err = d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: "user-2"})
	assert.ErrorIs(t, err, entity.ErrDeadlinePassed)
}

func TestDispatcher_unknown_command(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), struct{ Name string }{Name: "drop tables"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestDispatcher_concurrent_commands_do_not_mix(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	d, _ := newDispatcher(t)
	activity := createActivity(t, d, 100)

	const users = 50
	var wg sync.WaitGroup
	bookings := make([]entity.Booking, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: fmt.Sprintf("user-%d", i)})
			if assert.NoError(t, err) {
				bookings[i] = result.(entity.Booking)
			}
		}(i)
	}
	wg.Wait()

	for i, booking := range bookings {
		assert.Equal(t, fmt.Sprintf("user-%d", i), booking.UserID)
	}

	result, err := d.Dispatch(ctx, entity.GetActivity{ActivityID: activity.ActivityID})
	require.NoError(t, err)
	assert.Equal(t, users, result.(entity.Activity).ReservedSeats)
}

func TestDispatcher_concurrent_last_seat(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	d, _ := newDispatcher(t)
	activity := createActivity(t, d, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Dispatch(ctx, entity.CreateBooking{ActivityID: activity.ActivityID, UserID: fmt.Sprintf("user-%d", i)})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, entity.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, failures)
}
