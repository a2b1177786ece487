package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"trips/entity"
)

type postActivityRequest struct {
	Title                string       `json:"title"`
	Capacity             int          `json:"capacity"`
	Price                entity.Money `json:"price"`
	RegistrationDeadline *time.Time   `json:"registration_deadline"`
	StartsAt             time.Time    `json:"starts_at"`
	EndsAt               *time.Time   `json:"ends_at"`
}

type activityResponse struct {
	entity.Activity
	RemainingSeats int `json:"remaining_seats"`
}

func (s *Server) PostActivity(c echo.Context, _ entity.Identity) error {
	var request postActivityRequest
	if err := c.Bind(&request); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrInvalidInput, err)
	}

	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.CreateActivity{
		Title:                request.Title,
		Capacity:             request.Capacity,
		Price:                request.Price,
		RegistrationDeadline: request.RegistrationDeadline,
		StartsAt:             request.StartsAt,
		EndsAt:               request.EndsAt,
	})
	if err != nil {
		return err
	}

	activity := result.(entity.Activity)
	return c.JSON(http.StatusCreated, activityResponse{Activity: activity, RemainingSeats: activity.RemainingSeats()})
}

func (s *Server) GetActivity(c echo.Context, _ entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.GetActivity{ActivityID: c.Param("id")})
	if err != nil {
		return err
	}

	activity := result.(entity.Activity)
	return c.JSON(http.StatusOK, activityResponse{Activity: activity, RemainingSeats: activity.RemainingSeats()})
}

func (s *Server) DeleteActivity(c echo.Context, _ entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.CancelActivity{ActivityID: c.Param("id")})
	if err != nil {
		return err
	}

	activity := result.(entity.Activity)
	return c.JSON(http.StatusOK, activityResponse{Activity: activity, RemainingSeats: activity.RemainingSeats()})
}

func (s *Server) GetActivityBookings(c echo.Context, _ entity.Identity) error {
	result, err := s.dispatcher.Dispatch(c.Request().Context(), entity.ListActivityBookings{ActivityID: c.Param("id")})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, bookingsOrEmpty(result))
}
