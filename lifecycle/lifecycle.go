package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"

	"trips/entity"
	"trips/ledger"
)

// Lifecycle moves bookings through their states. Every operation runs in a
// single transaction, so a failed precondition leaves nothing behind.
type Lifecycle struct {
	repo    entity.Repository
	now     func() time.Time
	newCode func() string
}

func New(repo entity.Repository) *Lifecycle {
	if repo == nil {
		panic("missing repo")
	}

	return &Lifecycle{
		repo:    repo,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: shortuuid.New,
	}
}

// WithClock replaces the time source, used by tests.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

func (l *Lifecycle) Create(ctx context.Context, userID, activityID string) (entity.Booking, error) {
	if userID == "" || activityID == "" {
		return entity.Booking{}, fmt.Errorf("%w: user and activity are required", entity.ErrInvalidInput)
	}

	var booking entity.Booking
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		activity, err := tx.Activity(ctx, activityID)
		if err != nil {
			return err
		}

		now := l.now()
		if activity.RegistrationClosed(now) {
			return fmt.Errorf("%w: activity %s", entity.ErrDeadlinePassed, activityID)
		}

		duplicate, err := tx.HasActiveBooking(ctx, userID, activityID)
		if err != nil {
			return err
		}
		if duplicate {
			return fmt.Errorf("%w: user %s already booked activity %s", entity.ErrDuplicateBooking, userID, activityID)
		}

		if err := ledger.New(tx).Reserve(ctx, activityID); err != nil {
			return err
		}

		booking = entity.Booking{
			BookingID:     uuid.NewString(),
			UserID:        userID,
			ActivityID:    activityID,
			Code:          l.newCode(),
			Status:        entity.BookingStatusPendingPayment,
			PaymentStatus: entity.PaymentStatusPending,
			AmountDue:     activity.PriceAmount,
			Currency:      activity.PriceCurrency,
			CreatedAt:     now,
		}
		if err := tx.AddBooking(ctx, booking); err != nil {
			return err
		}

		return tx.Publish(ctx, entity.BookingCreated{
			Header:      entity.NewEventHeaderWithIdempotencyKey(booking.BookingID),
			BookingID:   booking.BookingID,
			BookingCode: booking.Code,
			UserID:      userID,
			ActivityID:  activityID,
			AmountDue:   booking.Amount(),
		})
	})
	if err != nil {
		return entity.Booking{}, err
	}

	logger(ctx, booking).Info("Booking created")
	return booking, nil
}

func (l *Lifecycle) ConfirmPayment(ctx context.Context, bookingID, method, transactionRef string) (entity.Booking, error) {
	return l.update(ctx, bookingID, func(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error) {
		next, err := entity.NextBookingStatus(booking.Status, entity.BookingEventPaymentConfirmed)
		if err != nil {
			return booking, err
		}

		now := l.now()
		booking.Status = next
		booking.PaymentStatus = entity.PaymentStatusCompleted
		booking.PaymentMethod = method
		booking.TransactionRef = transactionRef
		booking.PaidAt = &now

		return booking, tx.Publish(ctx, entity.BookingConfirmed{
			Header:         entity.NewEventHeaderWithIdempotencyKey("confirm-" + booking.BookingID),
			BookingID:      booking.BookingID,
			UserID:         booking.UserID,
			ActivityID:     booking.ActivityID,
			PaymentMethod:  method,
			TransactionRef: transactionRef,
			Amount:         booking.Amount(),
		})
	})
}

// RecordPaymentFailure notes a failed payment attempt. The booking keeps its
// seat and can still be confirmed by a later successful payment.
func (l *Lifecycle) RecordPaymentFailure(ctx context.Context, bookingID, reason string) (entity.Booking, error) {
	return l.update(ctx, bookingID, func(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error) {
		if booking.Status != entity.BookingStatusPendingPayment {
			return booking, fmt.Errorf("%w: booking %s is %s", entity.ErrInvalidTransition, booking.BookingID, booking.Status)
		}

		booking.PaymentStatus = entity.PaymentStatusFailed

		return booking, tx.Publish(ctx, entity.PaymentFailed{
			Header:    entity.NewEventHeader(),
			BookingID: booking.BookingID,
			UserID:    booking.UserID,
			Reason:    reason,
		})
	})
}

// MarkAttended checks a booking in at the door. An already issued ticket is
// validated in the same transaction, so it cannot be presented again.
func (l *Lifecycle) MarkAttended(ctx context.Context, bookingID, checkedInBy string) (entity.Booking, error) {
	return l.update(ctx, bookingID, func(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error) {
		attended, err := l.markAttended(ctx, tx, booking)
		if err != nil {
			return booking, err
		}

		ticket, err := tx.TicketByBooking(ctx, booking.BookingID)
		if errors.Is(err, entity.ErrNotFound) {
			return attended, nil
		}
		if err != nil {
			return booking, err
		}
		if ticket.Validated {
			return attended, nil
		}

		ticket.Validated = true
		ticket.ValidatedAt = attended.AttendedAt
		ticket.ValidatedBy = checkedInBy
		if err := tx.UpdateTicket(ctx, ticket); err != nil {
			return booking, err
		}

		return attended, tx.Publish(ctx, entity.TicketValidated{
			Header:      entity.NewEventHeaderWithIdempotencyKey("validate-" + ticket.TicketID),
			TicketID:    ticket.TicketID,
			BookingID:   ticket.BookingID,
			ValidatedBy: checkedInBy,
			ValidatedAt: *attended.AttendedAt,
		})
	})
}

// MarkAttendedInTx checks the booking in as part of the caller's transaction.
func (l *Lifecycle) MarkAttendedInTx(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error) {
	updated, err := l.markAttended(ctx, tx, booking)
	if err != nil {
		return booking, err
	}
	if err := tx.UpdateBooking(ctx, updated); err != nil {
		return booking, err
	}
	return updated, nil
}

func (l *Lifecycle) markAttended(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error) {
	next, err := entity.NextBookingStatus(booking.Status, entity.BookingEventAttend)
	if err != nil {
		return booking, err
	}

	now := l.now()
	booking.Status = next
	booking.AttendedAt = &now

	return booking, tx.Publish(ctx, entity.BookingAttended{
		Header:     entity.NewEventHeaderWithIdempotencyKey("attend-" + booking.BookingID),
		BookingID:  booking.BookingID,
		UserID:     booking.UserID,
		ActivityID: booking.ActivityID,
		AttendedAt: now,
	})
}

// Cancel cancels a booking on behalf of its owner and gives the seat back.
// Cancelling an already cancelled booking returns it unchanged.
func (l *Lifecycle) Cancel(ctx context.Context, bookingID, requestingUserID string) (entity.Booking, error) {
	var alreadyCancelled bool

	booking, err := l.update(ctx, bookingID, func(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error) {
		if booking.UserID != requestingUserID {
			return booking, entity.ErrUnauthorized
		}
		if booking.Status == entity.BookingStatusCancelled {
			alreadyCancelled = true
			return booking, nil
		}

		return l.cancel(ctx, tx, booking, false)
	})
	if err != nil {
		return entity.Booking{}, err
	}

	if alreadyCancelled {
		logger(ctx, booking).Info("Booking already cancelled")
	}
	return booking, nil
}

// cancel releases the booking's seat and records BookingCancelled. The caller stores the booking.
func (l *Lifecycle) cancel(ctx context.Context, tx entity.Tx, booking entity.Booking, activityCancelled bool) (entity.Booking, error) {
	next, err := entity.NextBookingStatus(booking.Status, entity.BookingEventCancel)
	if err != nil {
		return booking, err
	}

	if err := ledger.New(tx).Release(ctx, booking.ActivityID); err != nil {
		return booking, err
	}

	now := l.now()
	refund := booking.PaymentStatus == entity.PaymentStatusCompleted
	booking.Status = next
	booking.CancelledAt = &now
	if refund {
		booking.PaymentStatus = entity.PaymentStatusRefunded
	}

	return booking, tx.Publish(ctx, entity.BookingCancelled{
		Header:            entity.NewEventHeaderWithIdempotencyKey("cancel-" + booking.BookingID),
		BookingID:         booking.BookingID,
		UserID:            booking.UserID,
		ActivityID:        booking.ActivityID,
		RefundRequired:    refund,
		RefundAmount:      booking.Amount(),
		TransactionRef:    booking.TransactionRef,
		ActivityCancelled: activityCancelled,
	})
}

func (l *Lifecycle) update(
	ctx context.Context,
	bookingID string,
	updateFn func(ctx context.Context, tx entity.Tx, booking entity.Booking) (entity.Booking, error),
) (entity.Booking, error) {
	var (
		updated entity.Booking
		changed bool
	)
	err := l.repo.InTx(ctx, func(ctx context.Context, tx entity.Tx) error {
		booking, err := tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}

		updated, err = updateFn(ctx, tx, booking)
		if err != nil {
			return err
		}
		if changed = updated != booking; !changed {
			return nil
		}

		return tx.UpdateBooking(ctx, updated)
	})
	if err != nil {
		return entity.Booking{}, err
	}

	if changed {
		logger(ctx, updated).Info("Booking updated")
	}
	return updated, nil
}

func logger(ctx context.Context, booking entity.Booking) *logrus.Entry {
	return log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id":     booking.BookingID,
		"activity_id":    booking.ActivityID,
		"status":         booking.Status,
		"payment_status": booking.PaymentStatus,
	})
}
