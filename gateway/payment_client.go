package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/clients/payments"

	"trips/entity"
)

type PaymentClient struct {
	clients *clients.Clients
}

func NewPaymentClient(clients *clients.Clients) PaymentClient {
	if clients == nil {
		panic("missing clients")
	}

	return PaymentClient{
		clients: clients,
	}
}

func (c PaymentClient) Refund(ctx context.Context, request entity.RefundRequest) error {
	resp, err := c.clients.Payments.PutRefundsWithResponse(ctx, payments.PaymentRefundRequest{
		PaymentReference: request.TransactionRef,
		Reason:           "booking " + request.BookingID + " cancelled",
		DeduplicationId:  &request.IdempotencyKey,
	})
	if err != nil {
		return err
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code while refunding payment: %d", resp.StatusCode())
	}

	return nil
}
