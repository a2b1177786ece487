package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusAttended       BookingStatus = "ATTENDED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type Booking struct {
	BookingID      string        `json:"booking_id" db:"booking_id"`
	UserID         string        `json:"user_id" db:"user_id"`
	ActivityID     string        `json:"activity_id" db:"activity_id"`
	Code           string        `json:"code" db:"code"`
	Status         BookingStatus `json:"status" db:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status" db:"payment_status"`
	AmountDue      string        `json:"amount_due" db:"amount_due"`
	Currency       string        `json:"currency" db:"currency"`
	PaymentMethod  string        `json:"payment_method,omitempty" db:"payment_method"`
	TransactionRef string        `json:"transaction_ref,omitempty" db:"transaction_ref"`
	PaidAt         *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	AttendedAt     *time.Time    `json:"attended_at,omitempty" db:"attended_at"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Active bookings hold a seat and block another booking of the same activity by the same user.
func (b Booking) Active() bool {
	return b.Status != BookingStatusCancelled
}

func (b Booking) Amount() Money {
	return Money{Amount: b.AmountDue, Currency: b.Currency}
}
