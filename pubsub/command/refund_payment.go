package command

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"trips/entity"
)

func (h Handler) RefundPaymentHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"RefundPaymentHandler",
		func(ctx context.Context, command *entity.RefundPayment) error {
			log.FromContext(ctx).WithField("booking_id", command.BookingID).Info("Refunding payment")

			err := h.paymentService.Refund(ctx, entity.RefundRequest{
				BookingID:      command.BookingID,
				Amount:         command.Amount,
				TransactionRef: command.TransactionRef,
				IdempotencyKey: command.Header.IdempotencyKey,
			})
			if err != nil {
				return fmt.Errorf("could not refund booking %s: %w", command.BookingID, err)
			}

			return h.eventBus.Publish(ctx, entity.PaymentRefunded{
				Header:    entity.NewEventHeaderWithIdempotencyKey(command.Header.IdempotencyKey),
				BookingID: command.BookingID,
				Amount:    command.Amount,
			})
		},
	)
}
