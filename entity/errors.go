package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrDuplicateBooking  = errors.New("duplicate booking")
	ErrDeadlinePassed    = errors.New("registration deadline passed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidTicket     = errors.New("invalid ticket")
	ErrUnavailable       = errors.New("unavailable")
	ErrInvalidInput      = errors.New("invalid input")

	ErrTicketAlreadyUsed = fmt.Errorf("%w: ticket already used", ErrInvalidTransition)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrInvalidTicket)
)

// RateLimitedError carries how long the client should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
