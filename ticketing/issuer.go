package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trips/entity"
	"trips/metrics"
)

type BookingLifecycle interface {
	MarkAttendedInTx(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error)
}

// Issuer hands out one ticket per booking and checks tickets in at most once.
type Issuer struct {
	repo      entity.Repository
	lifecycle BookingLifecycle
	codec     Codec
	now       func() time.Time
}

func NewIssuer(repo entity.Repository, lifecycle BookingLifecycle, codec Codec) *Issuer {
	if repo == nil {
		panic("missing repo")
	}
	if lifecycle == nil {
		panic("missing lifecycle")
	}
	if codec == nil {
		panic("missing codec")
	}

	return &Issuer{
		repo:      repo,
		lifecycle: lifecycle,
		codec:     codec,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue returns the booking's ticket, creating it on the first call.
func (i *Issuer) Issue(ctx context.Context, bookingID string) (entity.Ticket, error) {
	var (
		ticket  entity.Ticket
		created bool
	)
	err := i.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		booking, err := tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}

		ticket, err = tx.TicketByBooking(ctx, bookingID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return err
		}

		if booking.Status == entity.BookingStatusCancelled {
			return fmt.Errorf("%w: booking %s is cancelled", entity.ErrInvalidTransition, bookingID)
		}

		activity, err := tx.Activity(ctx, booking.ActivityID)
		if err != nil {
			return err
		}

		token, err := i.codec.Encode(Claims{
			BookingCode: booking.Code,
			ActivityID:  booking.ActivityID,
			UserID:      booking.UserID,
		})
		if err != nil {
			return fmt.Errorf("could not encode ticket: %w", err)
		}

		validUntil := activity.TicketValidUntil()
		ticket = entity.Ticket{
			TicketID:   uuid.NewString(),
			BookingID:  bookingID,
			Payload:    token.String(),
			Signature:  token.Signature,
			IssuedAt:   i.now(),
			ValidUntil: &validUntil,
		}
		if err := tx.AddTicket(ctx, ticket); err != nil {
			return err
		}
		created = true

		return tx.Publish(ctx, entity.TicketIssued{
			Header:    entity.NewEventHeaderWithIdempotencyKey("ticket-" + bookingID),
			TicketID:  ticket.TicketID,
			BookingID: bookingID,
			Signed:    token.Signature != "",
		})
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	if created {
		log.FromContext(ctx).WithFields(logrus.Fields{
			"ticket_id":  ticket.TicketID,
			"booking_id": bookingID,
		}).Info("Ticket issued")
	}
	return ticket, nil
}

func (i *Issuer) Ticket(ctx context.Context, bookingID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := i.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) (err error) {
		ticket, err = tx.TicketByBooking(ctx, bookingID)
		return err
	})
	return ticket, err
}

// Validate checks a presented ticket in. The ticket is marked validated and
// the booking attended in one transaction.
func (i *Issuer) Validate(ctx context.Context, raw, validatedBy string) (entity.Ticket, error) {
	ticket, err := i.validate(ctx, raw, validatedBy)

	outcome := "valid"
	switch {
	case errors.Is(err, entity.ErrSignatureMismatch):
		outcome = "signature_mismatch"
		log.FromContext(ctx).WithError(err).WithField("validated_by", validatedBy).Error("Ticket signature mismatch")
	case errors.Is(err, entity.ErrTicketAlreadyUsed):
		outcome = "already_used"
	case errors.Is(err, entity.ErrInvalidTicket):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	metrics.TicketValidations.WithLabelValues(outcome).Inc()

	if err != nil {
		return entity.Ticket{}, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id":    ticket.TicketID,
		"booking_id":   ticket.BookingID,
		"validated_by": validatedBy,
	}).Info("Ticket validated")
	return ticket, nil
}

func (i *Issuer) validate(ctx context.Context, raw, validatedBy string) (entity.Ticket, error) {
	claims, err := i.codec.Decode(raw)
	if err != nil {
		return entity.Ticket{}, err
	}

	var ticket entity.Ticket
	err = i.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		booking, err := tx.BookingByCode(ctx, claims.BookingCode)
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("%w: unknown booking", entity.ErrInvalidTicket)
		}
		if err != nil {
			return err
		}
		if booking.ActivityID != claims.ActivityID || booking.UserID != claims.UserID {
			return fmt.Errorf("%w: payload does not match booking", entity.ErrInvalidTicket)
		}

		ticket, err = tx.TicketByBooking(ctx, booking.BookingID)
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("%w: no ticket issued for booking", entity.ErrInvalidTicket)
		}
		if err != nil {
			return err
		}
		if ticket.Payload != raw {
			return fmt.Errorf("%w: payload does not match issued ticket", entity.ErrInvalidTicket)
		}

		if ticket.Validated || booking.Status == entity.BookingStatusAttended {
			return entity.ErrTicketAlreadyUsed
		}
		if booking.Status != entity.BookingStatusConfirmed {
			return fmt.Errorf("%w: booking is %s", entity.ErrInvalidTicket, booking.Status)
		}

		now := i.now()
		if ticket.ValidUntil != nil && now.After(*ticket.ValidUntil) {
			return fmt.Errorf("%w: ticket expired", entity.ErrInvalidTicket)
		}

		if _, err := i.lifecycle.MarkAttendedInTx(ctx, tx, booking); err != nil {
			return err
		}

		ticket.Validated = true
		ticket.ValidatedAt = &now
		ticket.ValidatedBy = validatedBy
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return err
		}

		return tx.Publish(ctx, entity.TicketValidated{
			Header:      entity.NewEventHeaderWithIdempotencyKey("validate-" + ticket.TicketID),
			TicketID:    ticket.TicketID,
			BookingID:   ticket.BookingID,
			ValidatedBy: validatedBy,
			ValidatedAt: now,
		})
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	return ticket, nil
}
