package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type BookingCreated struct {
	Header      EventHeader `json:"header"`
	BookingID   string      `json:"booking_id"`
	BookingCode string      `json:"booking_code"`
	UserID      string      `json:"user_id"`
	ActivityID  string      `json:"activity_id"`
	AmountDue   Money       `json:"amount_due"`
}

type BookingConfirmed struct {
	Header         EventHeader `json:"header"`
	BookingID      string      `json:"booking_id"`
	UserID         string      `json:"user_id"`
	ActivityID     string      `json:"activity_id"`
	PaymentMethod  string      `json:"payment_method"`
	TransactionRef string      `json:"transaction_ref"`
	Amount         Money       `json:"amount"`
}

type PaymentFailed struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	UserID    string      `json:"user_id"`
	Reason    string      `json:"reason"`
}

type BookingCancelled struct {
	Header         EventHeader `json:"header"`
	BookingID      string      `json:"booking_id"`
	UserID         string      `json:"user_id"`
	ActivityID     string      `json:"activity_id"`
	RefundRequired bool        `json:"refund_required"`
	RefundAmount   Money       `json:"refund_amount"`
	TransactionRef string      `json:"transaction_ref"`

	// ActivityCancelled is set when the booking was cancelled together with its activity.
	ActivityCancelled bool `json:"activity_cancelled"`
}

type ActivityCancelled struct {
	Header            EventHeader `json:"header"`
	ActivityID        string      `json:"activity_id"`
	Title             string      `json:"title"`
	CancelledBookings int         `json:"cancelled_bookings"`
}

type BookingAttended struct {
	Header     EventHeader `json:"header"`
	BookingID  string      `json:"booking_id"`
	UserID     string      `json:"user_id"`
	ActivityID string      `json:"activity_id"`
	AttendedAt time.Time   `json:"attended_at"`
}

type TicketIssued struct {
	Header    EventHeader `json:"header"`
	TicketID  string      `json:"ticket_id"`
	BookingID string      `json:"booking_id"`
	Signed    bool        `json:"signed"`
}

type TicketValidated struct {
	Header      EventHeader `json:"header"`
	TicketID    string      `json:"ticket_id"`
	BookingID   string      `json:"booking_id"`
	ValidatedBy string      `json:"validated_by"`
	ValidatedAt time.Time   `json:"validated_at"`
}

type PaymentRefunded struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	Amount    Money       `json:"amount"`
}

// DataLakeEvent is a raw event as stored in the audit log.
type DataLakeEvent struct {
	ID          string    `json:"id" db:"event_id"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	Name        string    `json:"name" db:"event_name"`
	Payload     []byte    `json:"payload" db:"event_payload"`
}
