package entity

import (
	"time"
)

// Ticket is the proof of entry for a booking. There is at most one per booking.
type Ticket struct {
	TicketID    string     `json:"ticket_id" db:"ticket_id"`
	BookingID   string     `json:"booking_id" db:"booking_id"`
	Payload     string     `json:"payload" db:"payload"`
	Signature   string     `json:"signature,omitempty" db:"signature"`
	Validated   bool       `json:"validated" db:"validated"`
	ValidatedAt *time.Time `json:"validated_at,omitempty" db:"validated_at"`
	ValidatedBy string     `json:"validated_by,omitempty" db:"validated_by"`
	IssuedAt    time.Time  `json:"issued_at" db:"issued_at"`
	ValidUntil  *time.Time `json:"valid_until,omitempty" db:"valid_until"`
}
