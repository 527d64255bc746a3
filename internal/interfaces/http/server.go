package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ticketing/internal/application/usecases/booking"
	paymentsuc "ticketing/internal/application/usecases/payments"
	bdomain "ticketing/internal/domain/bookings"
	edomain "ticketing/internal/domain/events"
	tdomain "ticketing/internal/domain/tickets"
	"ticketing/internal/idempotency"
)

type EventsService interface {
	CreateEvent(ctx context.Context, event edomain.Event, ticketTypes []edomain.TicketType) (uuid.UUID, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*edomain.Event, error)
	GetTicketTypesForEvent(ctx context.Context, eventID uuid.UUID) ([]edomain.TicketType, error)
}

type BookingsReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bdomain.Booking, error)
}

type TicketsReader interface {
	GetForBooking(ctx context.Context, bookingID uuid.UUID) ([]tdomain.Ticket, error)
}

type Server struct {
	e    *echo.Echo
	addr string

	createBooking   *booking.CreateBookingUsecase
	cancelBooking   *booking.CancelBookingUsecase
	paymentsService *paymentsuc.Usecase

	eventsService  EventsService
	bookingsReader BookingsReader
	ticketsReader  TicketsReader

	gateways   GatewayResolver
	commandBus *cqrs.CommandBus

	successURL string
	failureURL string
}

type Config struct {
	Addr       string
	SuccessURL string
	FailureURL string
}

func NewServer(
	e *echo.Echo,
	cfg Config,
	createBooking *booking.CreateBookingUsecase,
	cancelBooking *booking.CancelBookingUsecase,
	paymentsService *paymentsuc.Usecase,
	eventsService EventsService,
	bookingsReader BookingsReader,
	ticketsReader TicketsReader,
	gateways GatewayResolver,
	commandBus *cqrs.CommandBus,
	routerIsRunning func() bool,
) *Server {
	srv := &Server{
		e:               e,
		addr:            cfg.Addr,
		createBooking:   createBooking,
		cancelBooking:   cancelBooking,
		paymentsService: paymentsService,
		eventsService:   eventsService,
		bookingsReader:  bookingsReader,
		ticketsReader:   ticketsReader,
		gateways:        gateways,
		commandBus:      commandBus,
		successURL:      cfg.SuccessURL,
		failureURL:      cfg.FailureURL,
	}

	e.HTTPErrorHandler = errorHandler

	e.POST("/events", srv.CreateEventHandler)
	e.GET("/events/:event_id", srv.GetEventHandler)

	e.POST("/bookings", srv.CreateBookingHandler)
	e.GET("/bookings/:booking_id", srv.GetBookingHandler)
	e.POST("/bookings/:booking_id/cancel", srv.CancelBookingHandler)

	e.POST("/payments/:provider/initiate", srv.InitiatePaymentHandler)
	e.POST("/payments/:provider/verify", srv.VerifyPaymentHandler)
	e.POST("/payments/:provider/webhook", srv.WebhookHandler)
	e.POST("/payments/:provider/refund", srv.RefundPaymentHandler)
	e.GET("/payments/:provider/redirect", srv.RedirectHandler)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		if !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})

	// client-supplied idempotency keys flow into published event headers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key := c.Request().Header.Get("X-Idempotency-Key"); key != "" {
				ctx := idempotency.WithKey(c.Request().Context(), key)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	})

	// logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log.FromContext(c.Request().Context()).
				WithField("path", c.Request().URL.Path).
				Info("Handling a request")

			err := next(c)

			if err != nil {
				log.FromContext(c.Request().Context()).
					WithField("error", err).
					Error("Request handling error")
			}

			return err
		}
	})
	return srv
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// userID reads the authenticated user from the X-User-ID header set by
// the edge proxy. Authentication itself happens upstream.
func userID(c echo.Context) (uuid.UUID, error) {
	raw := c.Request().Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing X-User-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid X-User-ID header")
	}
	return id, nil
}
