package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"trips/entity"
)

type errorResponse struct {
	Error string `json:"error"`
}

var statusByError = []struct {
	err    error
	status int
}{
	{entity.ErrNotFound, http.StatusNotFound},
	{entity.ErrCapacityExceeded, http.StatusConflict},
	{entity.ErrDuplicateBooking, http.StatusConflict},
	{entity.ErrInvalidTransition, http.StatusConflict},
	{entity.ErrDeadlinePassed, http.StatusUnprocessableEntity},
	{entity.ErrInvalidTicket, http.StatusUnprocessableEntity},
	{entity.ErrInvalidInput, http.StatusBadRequest},
	{entity.ErrUnauthorized, http.StatusUnauthorized},
	{entity.ErrRateLimited, http.StatusTooManyRequests},
	{entity.ErrUnavailable, http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	for _, s := range statusByError {
		if errors.Is(err, s.err) {
			return s.status
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return http.StatusInternalServerError
}

func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusOf(err)

	var rateLimited *entity.RateLimitedError
	if errors.As(err, &rateLimited) {
		seconds := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	message := http.StatusText(status)
	switch {
	case status >= http.StatusInternalServerError:
		log.FromContext(c.Request().Context()).WithError(err).Error("Request failed")
	case status == http.StatusUnauthorized:
		// no detail on why
	default:
		message = err.Error()
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			message = http.StatusText(httpErr.Code)
			if m, ok := httpErr.Message.(string); ok {
				message = m
			}
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Error: message})
	}
	if err != nil {
		log.FromContext(c.Request().Context()).WithError(err).Error("could not write error response")
	}
}
