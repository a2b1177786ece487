package entity

import (
	"fmt"
)

type BookingEvent string

const (
	BookingEventPaymentConfirmed BookingEvent = "payment_confirmed"
	BookingEventAttend           BookingEvent = "attend"
	BookingEventCancel           BookingEvent = "cancel"
)

var bookingTransitions = map[BookingStatus]map[BookingEvent]BookingStatus{
	BookingStatusPendingPayment: {
		BookingEventPaymentConfirmed: BookingStatusConfirmed,
		BookingEventCancel:           BookingStatusCancelled,
	},
	BookingStatusConfirmed: {
		BookingEventAttend: BookingStatusAttended,
		BookingEventCancel: BookingStatusCancelled,
	},
	// ATTENDED and CANCELLED are terminal
}

// NextBookingStatus returns the status a booking in current moves to on event.
func NextBookingStatus(current BookingStatus, event BookingEvent) (BookingStatus, error) {
	next, ok := bookingTransitions[current][event]
	if !ok {
		return current, fmt.Errorf("%w: cannot apply %s to booking in status %s", ErrInvalidTransition, event, current)
	}
	return next, nil
}

func IsTerminal(status BookingStatus) bool {
	return len(bookingTransitions[status]) == 0
}
