package mocks

import (
	"context"
	"sync"

	"trips/entity"
)

// PaymentService records refunds, deduplicated by idempotency key like the real provider.
type PaymentService struct {
	mu      sync.Mutex
	Refunds map[string]entity.RefundRequest
}

func NewPaymentService() *PaymentService {
	return &PaymentService{Refunds: map[string]entity.RefundRequest{}}
}

func (s *PaymentService) Refund(_ context.Context, request entity.RefundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Refunds[request.IdempotencyKey] = request
	return nil
}

func (s *PaymentService) RefundsFor(bookingID string) []entity.RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []entity.RefundRequest
	for _, r := range s.Refunds {
		if r.BookingID == bookingID {
			result = append(result, r)
		}
	}
	return result
}
