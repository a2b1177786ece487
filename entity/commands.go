package entity

import (
	"time"
)

// Commands executed synchronously by the dispatcher.

type CreateActivity struct {
	Title                string
	Capacity             int
	Price                Money
	RegistrationDeadline *time.Time
	StartsAt             time.Time
	EndsAt               *time.Time
}

type GetActivity struct {
	ActivityID string
}

type CancelActivity struct {
	ActivityID string
}

type CreateBooking struct {
	ActivityID string
	UserID     string
}

type ConfirmPayment struct {
	BookingID      string
	Method         string
	TransactionRef string
}

type RecordPaymentFailure struct {
	BookingID string
	Reason    string
}

type CancelBooking struct {
	BookingID string
	UserID    string
}

type MarkAttended struct {
	BookingID   string
	CheckedInBy string
}

type IssueTicket struct {
	BookingID string
}

type ValidateTicket struct {
	Payload     string
	ValidatedBy string
}

type GetBooking struct {
	BookingID string
}

type ListUserBookings struct {
	UserID string
}

type ListActivityBookings struct {
	ActivityID string
}

// RefundPayment is sent over the command bus once a paid booking is cancelled.
type RefundPayment struct {
	Header         EventHeader `json:"header"`
	BookingID      string      `json:"booking_id"`
	UserID         string      `json:"user_id"`
	Amount         Money       `json:"amount"`
	TransactionRef string      `json:"transaction_ref"`
}
