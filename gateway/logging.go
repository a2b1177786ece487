package gateway

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"trips/entity"
)

// LoggingNotifier is used when no gateway is configured.
type LoggingNotifier struct{}

func (LoggingNotifier) Notify(ctx context.Context, userID, message string, severity entity.Severity) error {
	log.FromContext(ctx).WithFields(logrus.Fields{
		"user_id":  userID,
		"severity": severity,
	}).Info(message)
	return nil
}

// LoggingPayments is used when no gateway is configured.
type LoggingPayments struct{}

func (LoggingPayments) Refund(ctx context.Context, request entity.RefundRequest) error {
	log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id":      request.BookingID,
		"transaction_ref": request.TransactionRef,
		"amount":          request.Amount.Amount + " " + request.Amount.Currency,
	}).Info("Refund requested")
	return nil
}
