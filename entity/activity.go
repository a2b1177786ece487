package entity

import (
	"time"
)

type ActivityStatus string

const (
	ActivityStatusUpcoming  ActivityStatus = "UPCOMING"
	ActivityStatusOngoing   ActivityStatus = "ONGOING"
	ActivityStatusCompleted ActivityStatus = "COMPLETED"
	ActivityStatusCancelled ActivityStatus = "CANCELLED"
)

type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Activity is a bookable event or trip with a fixed number of seats.
// ReservedSeats is only changed through the seat ledger.
type Activity struct {
	ActivityID           string         `json:"activity_id" db:"activity_id"`
	Title                string         `json:"title" db:"title"`
	Capacity             int            `json:"capacity" db:"capacity"`
	ReservedSeats        int            `json:"reserved_seats" db:"reserved_seats"`
	PriceAmount          string         `json:"price_amount" db:"price_amount"`
	PriceCurrency        string         `json:"price_currency" db:"price_currency"`
	RegistrationDeadline *time.Time     `json:"registration_deadline,omitempty" db:"registration_deadline"`
	StartsAt             time.Time      `json:"starts_at" db:"starts_at"`
	EndsAt               *time.Time     `json:"ends_at,omitempty" db:"ends_at"`
	Status               ActivityStatus `json:"status" db:"status"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
}

func (a Activity) Price() Money {
	return Money{Amount: a.PriceAmount, Currency: a.PriceCurrency}
}

func (a Activity) RemainingSeats() int {
	if a.ReservedSeats >= a.Capacity {
		return 0
	}
	return a.Capacity - a.ReservedSeats
}

// RegistrationClosed reports whether new bookings are no longer accepted at now.
func (a Activity) RegistrationClosed(now time.Time) bool {
	if a.Status == ActivityStatusCompleted || a.Status == ActivityStatusCancelled {
		return true
	}
	return a.RegistrationDeadline != nil && now.After(*a.RegistrationDeadline)
}

// End is EndsAt, or a day after the start for activities without a set end.
func (a Activity) End() time.Time {
	if a.EndsAt != nil {
		return *a.EndsAt
	}
	return a.StartsAt.Add(24 * time.Hour)
}

// TicketValidUntil is the moment a ticket for this activity stops being accepted at the entrance.
func (a Activity) TicketValidUntil() time.Time {
	return a.End()
}

// ScheduledStatus is the status the activity should have at now. Cancelled
// and completed activities keep their status.
func (a Activity) ScheduledStatus(now time.Time) ActivityStatus {
	if a.Status == ActivityStatusCancelled || a.Status == ActivityStatusCompleted {
		return a.Status
	}

	switch {
	case now.After(a.End()):
		return ActivityStatusCompleted
	case !now.Before(a.StartsAt):
		return ActivityStatusOngoing
	default:
		return ActivityStatusUpcoming
	}
}
