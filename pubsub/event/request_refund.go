package event

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"trips/entity"
)

func (h Handler) RequestRefundHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"RequestRefundHandler",
		func(ctx context.Context, event *entity.BookingCancelled) error {
			if !event.RefundRequired {
				return nil
			}

			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("Requesting refund")

			return h.commandBus.Send(ctx, entity.RefundPayment{
				Header:         entity.NewEventHeaderWithIdempotencyKey("refund-" + event.BookingID),
				BookingID:      event.BookingID,
				UserID:         event.UserID,
				Amount:         event.RefundAmount,
				TransactionRef: event.TransactionRef,
			})
		},
	)
}
