package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"trips/entity"
)

type postPaymentRequest struct {
	Method         string `json:"method"`
	TransactionRef string `json:"transaction_ref"`
}

type postPaymentFailureRequest struct {
	Reason string `json:"reason"`
}

type historyEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

func (s *Server) PostBooking(c echo.Context, identity entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.CreateBooking{
		ActivityID: c.Param("id"),
		UserID:     identity.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

func (s *Server) GetUserBookings(c echo.Context, identity entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.ListUserBookings{UserID: identity.UserID})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, bookingsOrEmpty(result))
}

func (s *Server) GetBooking(c echo.Context, identity entity.Identity) error {
	booking, err := s.visibleBooking(c.Request().Context(), identity, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, booking)
}

func (s *Server) GetBookingHistory(c echo.Context, _ entity.Identity) error {
	ctx := c.Request().Context()
	bookingID := c.Param("id")

	if _, err := s.dispatcher.Dispatch(ctx, entity.GetBooking{BookingID: bookingID}); err != nil {
		return err
	}

	events, err := s.history.BookingHistory(ctx, bookingID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lo.Map(events, func(e entity.DataLakeEvent, _ int) historyEntry {
		return historyEntry{
			ID:          e.ID,
			Name:        e.Name,
			PublishedAt: e.PublishedAt,
			Payload:     e.Payload,
		}
	}))
}

func (s *Server) PostPayment(c echo.Context, identity entity.Identity) error {
	var request postPaymentRequest
	if err := c.Bind(&request); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrInvalidInput, err)
	}

	ctx := c.Request().Context()
	booking, err := s.visibleBooking(ctx, identity, c.Param("id"))
	if err != nil {
		return err
	}

	result, err := s.dispatcher.Dispatch(ctx, entity.ConfirmPayment{
		BookingID:      booking.BookingID,
		Method:         request.Method,
		TransactionRef: request.TransactionRef,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) PostPaymentFailure(c echo.Context, identity entity.Identity) error {
	var request postPaymentFailureRequest
	if err := c.Bind(&request); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrInvalidInput, err)
	}

	ctx := c.Request().Context()
	booking, err := s.visibleBooking(ctx, identity, c.Param("id"))
	if err != nil {
		return err
	}

	result, err := s.dispatcher.Dispatch(ctx, entity.RecordPaymentFailure{
		BookingID: booking.BookingID,
		Reason:    request.Reason,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) DeleteBooking(c echo.Context, identity entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.CancelBooking{
		BookingID: c.Param("id"),
		UserID:    identity.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) PostAttendance(c echo.Context, identity entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.MarkAttended{
		BookingID:   c.Param("id"),
		CheckedInBy: identity.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// visibleBooking returns the booking if identity owns it or is staff.
func (s *Server) visibleBooking(ctx context.Context, identity entity.Identity, bookingID string) (entity.Booking, error) {
	result, err := s.dispatcher.Dispatch(ctx, entity.GetBooking{BookingID: bookingID})
	if err != nil {
		return entity.Booking{}, err
	}

	booking := result.(entity.Booking)
	if booking.UserID != identity.UserID && !identity.IsStaff() {
		return entity.Booking{}, entity.ErrUnauthorized
	}

	return booking, nil
}

func bookingsOrEmpty(result any) []entity.Booking {
	bookings, _ := result.([]entity.Booking)
	if bookings == nil {
		return []entity.Booking{}
	}
	return bookings
}
