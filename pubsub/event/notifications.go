package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"trips/entity"
)

func (h Handler) NotifyBookingCreatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"NotifyBookingCreatedHandler",
		func(ctx context.Context, event *entity.BookingCreated) error {
			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("Notifying about created booking")

			msg := fmt.Sprintf(
				"Your booking %s is reserved. Please pay %s %s to confirm it.",
				event.BookingCode,
				event.AmountDue.Amount,
				event.AmountDue.Currency,
			)
			return h.notify(ctx, event.UserID, msg, entity.SeverityInfo)
		},
	)
}

func (h Handler) NotifyBookingConfirmedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"NotifyBookingConfirmedHandler",
		func(ctx context.Context, event *entity.BookingConfirmed) error {
			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("Notifying about confirmed booking")

			return h.notify(ctx, event.UserID, "Payment received, your booking is confirmed and the ticket is ready.", entity.SeveritySuccess)
		},
	)
}

func (h Handler) NotifyPaymentFailedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"NotifyPaymentFailedHandler",
		func(ctx context.Context, event *entity.PaymentFailed) error {
			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("Notifying about failed payment")

			msg := "Your payment did not go through. Your seat is still held, please try again."
			if event.Reason != "" {
				msg = fmt.Sprintf("Your payment did not go through (%s). Your seat is still held, please try again.", event.Reason)
			}
			return h.notify(ctx, event.UserID, msg, entity.SeverityWarning)
		},
	)
}

func (h Handler) NotifyBookingCancelledHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"NotifyBookingCancelledHandler",
		func(ctx context.Context, event *entity.BookingCancelled) error {
			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("Notifying about cancelled booking")

			msg, severity := "Your booking was cancelled.", entity.SeverityInfo
			if event.ActivityCancelled {
				msg, severity = "The activity you booked was cancelled.", entity.SeverityWarning
			}
			if event.RefundRequired {
				msg = fmt.Sprintf("%s %s %s will be refunded.", msg, event.RefundAmount.Amount, event.RefundAmount.Currency)
			}
			return h.notify(ctx, event.UserID, msg, severity)
		},
	)
}
