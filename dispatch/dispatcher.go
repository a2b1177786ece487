package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trips/entity"
	"trips/metrics"
)

type BookingLifecycle interface {
	CreateActivity(ctx context.Context, cmd entity.CreateActivity) (entity.Activity, error)
	Activity(ctx context.Context, activityID string) (entity.Activity, error)
	CancelActivity(ctx context.Context, activityID string) (entity.Activity, error)
	Create(ctx context.Context, userID, activityID string) (entity.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID, method, transactionRef string) (entity.Booking, error)
	RecordPaymentFailure(ctx context.Context, bookingID, reason string) (entity.Booking, error)
	MarkAttended(ctx context.Context, bookingID, checkedInBy string) (entity.Booking, error)
	Cancel(ctx context.Context, bookingID, requestingUserID string) (entity.Booking, error)
	Booking(ctx context.Context, bookingID string) (entity.Booking, error)
	UserBookings(ctx context.Context, userID string) ([]entity.Booking, error)
	ActivityBookings(ctx context.Context, activityID string) ([]entity.Booking, error)
}

type TicketIssuer interface {
	Issue(ctx context.Context, bookingID string) (entity.Ticket, error)
	Validate(ctx context.Context, raw, validatedBy string) (entity.Ticket, error)
}

// Dispatcher executes each command directly against the caller's own payload.
// It holds no state besides its collaborators, so concurrent dispatches are independent.
type Dispatcher struct {
	lifecycle BookingLifecycle
	issuer    TicketIssuer
}

func New(lifecycle BookingLifecycle, issuer TicketIssuer) Dispatcher {
	if lifecycle == nil {
		panic("missing lifecycle")
	}
	if issuer == nil {
		panic("missing issuer")
	}

	return Dispatcher{lifecycle: lifecycle, issuer: issuer}
}

func (d Dispatcher) Dispatch(ctx context.Context, cmd any) (result any, err error) {
	name := cqrs.StructName(cmd)
	start := time.Now()

	ctx, span := otel.Tracer("").Start(ctx, "command: "+name)
	span.SetAttributes(attribute.String("command", name))

	defer func() {
		outcome := outcomeOf(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		metrics.CommandsExecuted.WithLabelValues(name, outcome).Inc()
		metrics.CommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		logger := log.FromContext(ctx).WithField("command", name).WithField("outcome", outcome)
		if outcome == "error" {
			logger.WithError(err).Error("Command failed")
		} else {
			logger.Debug("Command executed")
		}
	}()

	return d.execute(ctx, cmd)
}

func (d Dispatcher) execute(ctx context.Context, cmd any) (any, error) {
	switch c := cmd.(type) {
	case entity.CreateActivity:
		return d.lifecycle.CreateActivity(ctx, c)
	case entity.GetActivity:
		return d.lifecycle.Activity(ctx, c.ActivityID)
	case entity.CancelActivity:
		return d.lifecycle.CancelActivity(ctx, c.ActivityID)
	case entity.CreateBooking:
		return d.lifecycle.Create(ctx, c.UserID, c.ActivityID)
	case entity.ConfirmPayment:
		return d.confirmPayment(ctx, c)
	case entity.RecordPaymentFailure:
		return d.lifecycle.RecordPaymentFailure(ctx, c.BookingID, c.Reason)
	case entity.CancelBooking:
		return d.lifecycle.Cancel(ctx, c.BookingID, c.UserID)
	case entity.MarkAttended:
		return d.lifecycle.MarkAttended(ctx, c.BookingID, c.CheckedInBy)
	case entity.IssueTicket:
		return d.issuer.Issue(ctx, c.BookingID)
	case entity.ValidateTicket:
		return d.issuer.Validate(ctx, c.Payload, c.ValidatedBy)
	case entity.GetBooking:
		return d.lifecycle.Booking(ctx, c.BookingID)
	case entity.ListUserBookings:
		return d.lifecycle.UserBookings(ctx, c.UserID)
	case entity.ListActivityBookings:
		return d.lifecycle.ActivityBookings(ctx, c.ActivityID)
	default:
		return nil, fmt.Errorf("%w: unknown command %T", entity.ErrInvalidInput, cmd)
	}
}

// confirmPayment pre-issues the ticket once the payment is recorded. A failed
// issue does not undo the payment; the ticket is created on the next request.
func (d Dispatcher) confirmPayment(ctx context.Context, c entity.ConfirmPayment) (entity.Booking, error) {
	booking, err := d.lifecycle.ConfirmPayment(ctx, c.BookingID, c.Method, c.TransactionRef)
	if err != nil {
		return entity.Booking{}, err
	}

	if _, err := d.issuer.Issue(ctx, booking.BookingID); err != nil {
		log.FromContext(ctx).WithError(err).WithField("booking_id", booking.BookingID).Warn("Could not pre-issue ticket")
	}

	return booking, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entity.ErrNotFound),
		errors.Is(err, entity.ErrCapacityExceeded),
		errors.Is(err, entity.ErrDuplicateBooking),
		errors.Is(err, entity.ErrDeadlinePassed),
		errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrInvalidTicket),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrUnauthorized):
		return "rejected"
	default:
		return "error"
	}
}
