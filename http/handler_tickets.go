package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"trips/entity"
)

type postValidateTicketRequest struct {
	Payload string `json:"payload"`
}

func (s *Server) PostTicket(c echo.Context, identity entity.Identity) error {
	ctx := c.Request().Context()
	booking, err := s.visibleBooking(ctx, identity, c.Param("id"))
	if err != nil {
		return err
	}

	result, err := s.dispatcher.Dispatch(ctx, entity.IssueTicket{BookingID: booking.BookingID})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) PostValidateTicket(c echo.Context, identity entity.Identity) error {
	var request postValidateTicketRequest
	if err := c.Bind(&request); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrInvalidInput, err)
	}
	if request.Payload == "" {
		return fmt.Errorf("%w: payload is required", entity.ErrInvalidInput)
	}

	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.ValidateTicket{
		Payload:     request.Payload,
		ValidatedBy: identity.UserID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
