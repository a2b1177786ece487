package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trips/entity"
	"trips/gate"
)

var (
	opCreateActivity       = gate.Operation{Name: "create_activity", Roles: entity.StaffRoles}
	opGetActivity          = gate.Operation{Name: "get_activity", Public: true, ReadOnly: true}
	opCancelActivity       = gate.Operation{Name: "cancel_activity", Roles: entity.StaffRoles}
	opListActivityBookings = gate.Operation{Name: "list_activity_bookings", Roles: entity.StaffRoles}
	opCreateBooking        = gate.Operation{Name: "create_booking"}
	opListUserBookings     = gate.Operation{Name: "list_user_bookings", ReadOnly: true}
	opGetBooking           = gate.Operation{Name: "get_booking", ReadOnly: true}
	opBookingHistory       = gate.Operation{Name: "booking_history", Roles: entity.StaffRoles}
	opConfirmPayment       = gate.Operation{Name: "confirm_payment"}
	opRecordPaymentFailure = gate.Operation{Name: "record_payment_failure"}
	opCancelBooking        = gate.Operation{Name: "cancel_booking"}
	opMarkAttended         = gate.Operation{Name: "mark_attended", Roles: entity.StaffRoles}
	opIssueTicket          = gate.Operation{Name: "issue_ticket"}
	opValidateTicket       = gate.Operation{Name: "validate_ticket", Roles: entity.StaffRoles}
)

// gatedHandler receives the identity admitted by the gate. It is anonymous for public operations.
type gatedHandler func(c echo.Context, identity entity.Identity) error

func (s *Server) registerRoutes() {
	s.route(http.MethodPost, "/activities", opCreateActivity, s.PostActivity)
	s.route(http.MethodGet, "/activities/:id", opGetActivity, s.GetActivity)
	s.route(http.MethodDelete, "/activities/:id", opCancelActivity, s.DeleteActivity)
	s.route(http.MethodGet, "/activities/:id/bookings", opListActivityBookings, s.GetActivityBookings)
	s.route(http.MethodPost, "/activities/:id/bookings", opCreateBooking, s.PostBooking)

	s.route(http.MethodGet, "/bookings", opListUserBookings, s.GetUserBookings)
	s.route(http.MethodGet, "/bookings/:id", opGetBooking, s.GetBooking)
	s.route(http.MethodGet, "/bookings/:id/history", opBookingHistory, s.GetBookingHistory)
	s.route(http.MethodPost, "/bookings/:id/payment", opConfirmPayment, s.PostPayment)
	s.route(http.MethodPost, "/bookings/:id/payment-failure", opRecordPaymentFailure, s.PostPaymentFailure)
	s.route(http.MethodDelete, "/bookings/:id", opCancelBooking, s.DeleteBooking)
	s.route(http.MethodPost, "/bookings/:id/attendance", opMarkAttended, s.PostAttendance)
	s.route(http.MethodPost, "/bookings/:id/ticket", opIssueTicket, s.PostTicket)

	s.route(http.MethodPost, "/tickets/validate", opValidateTicket, s.PostValidateTicket)
}

func (s *Server) route(method, path string, op gate.Operation, h gatedHandler) {
	s.e.Add(method, path, func(c echo.Context) error {
		req := c.Request()

		identity, err := s.gate.Admit(req.Context(), gate.Request{
			Operation:  op,
			Credential: bearerToken(req.Header.Get(echo.HeaderAuthorization)),
			ClientKey:  gate.ClientKey(req.RemoteAddr, req.Header.Get(echo.HeaderXForwardedFor)),
		})
		if err != nil {
			return err
		}

		return h(c, identity)
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
