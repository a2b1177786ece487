package entity

import (
	"context"
)

// Repository gives access to activities, bookings and tickets.
// Everything written through a Tx is committed together or not at all.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	AddActivity(ctx context.Context, activity Activity) error
	// Activity holds the activity row until the transaction ends.
	Activity(ctx context.Context, activityID string) (Activity, error)
	// ReserveSeat returns ErrCapacityExceeded without changing anything when the activity is full.
	ReserveSeat(ctx context.Context, activityID string) error
	// ReleaseSeat never takes ReservedSeats below zero.
	ReleaseSeat(ctx context.Context, activityID string) error
	UpdateActivityStatus(ctx context.Context, activityID string, status ActivityStatus) error
	// ActivitiesInStatus locks the returned rows. Rows locked by other transactions are skipped.
	ActivitiesInStatus(ctx context.Context, statuses ...ActivityStatus) ([]Activity, error)

	HasActiveBooking(ctx context.Context, userID, activityID string) (bool, error)
	AddBooking(ctx context.Context, booking Booking) error
	// Booking and BookingByCode hold the booking row until the transaction ends.
	Booking(ctx context.Context, bookingID string) (Booking, error)
	BookingByCode(ctx context.Context, code string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) error
	BookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	BookingsByActivity(ctx context.Context, activityID string) ([]Booking, error)

	TicketByBooking(ctx context.Context, bookingID string) (Ticket, error)
	AddTicket(ctx context.Context, ticket Ticket) error
	UpdateTicket(ctx context.Context, ticket Ticket) error

	// Publish records an event that is delivered only if the transaction commits.
	Publish(ctx context.Context, event any) error
}
