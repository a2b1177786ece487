package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"trips/entity"
	"trips/gate"
)

type Gate interface {
	Admit(ctx context.Context, req gate.Request) (entity.Identity, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, cmd any) (any, error)
}

type BookingHistory interface {
	BookingHistory(ctx context.Context, bookingID string) ([]entity.DataLakeEvent, error)
}

type Server struct {
	addr       string
	e          *echo.Echo
	gate       Gate
	dispatcher Dispatcher
	history    BookingHistory
}

func NewServer(
	addr string,
	gate Gate,
	dispatcher Dispatcher,
	history BookingHistory,
) *Server {
	if gate == nil {
		panic("missing gate")
	}
	if dispatcher == nil {
		panic("missing dispatcher")
	}
	if history == nil {
		panic("missing history")
	}

	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("trips"))
	e.HTTPErrorHandler = handleError

	server := &Server{
		addr:       addr,
		e:          e,
		gate:       gate,
		dispatcher: dispatcher,
		history:    history,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	server.registerRoutes()

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.Background())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
