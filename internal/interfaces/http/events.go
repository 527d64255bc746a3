package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	edomain "ticketing/internal/domain/events"
)

type CreateEventRequest struct {
	Name        string                    `json:"name"`
	Venue       string                    `json:"venue"`
	StartTime   time.Time                 `json:"start_time"`
	IsPublished bool                      `json:"is_published"`
	TicketTypes []CreateTicketTypeRequest `json:"ticket_types"`
}

type CreateTicketTypeRequest struct {
	Name          string     `json:"name"`
	Price         string     `json:"price"`
	Currency      string     `json:"currency"`
	Quantity      int        `json:"quantity"`
	MaxPerUser    int        `json:"max_per_user"`
	StartSaleTime time.Time  `json:"start_sale_time"`
	EndSaleTime   *time.Time `json:"end_sale_time,omitempty"`
	IsActive      bool       `json:"is_active"`
}

type CreateEventResponse struct {
	EventId uuid.UUID `json:"event_id"`
}

func (s *Server) CreateEventHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var request CreateEventRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Name == "" || len(request.TicketTypes) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name and ticket_types are required")
	}

	ticketTypes := make([]edomain.TicketType, 0, len(request.TicketTypes))
	for _, tt := range request.TicketTypes {
		price, err := decimal.NewFromString(tt.Price)
		if err != nil || price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket type price")
		}
		if tt.Quantity <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "ticket type quantity must be positive")
		}

		ticketTypes = append(ticketTypes, edomain.TicketType{
			Id:            uuid.New(),
			Name:          tt.Name,
			Price:         price,
			Currency:      tt.Currency,
			Quantity:      tt.Quantity,
			MaxPerUser:    tt.MaxPerUser,
			StartSaleTime: tt.StartSaleTime,
			EndSaleTime:   tt.EndSaleTime,
			IsActive:      tt.IsActive,
		})
	}

	eventID, err := s.eventsService.CreateEvent(ctx, edomain.Event{
		Id:          uuid.New(),
		Name:        request.Name,
		Venue:       request.Venue,
		StartTime:   request.StartTime,
		IsPublished: request.IsPublished,
	}, ticketTypes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreateEventResponse{EventId: eventID})
}

type GetEventResponse struct {
	Event       *edomain.Event       `json:"event"`
	TicketTypes []edomain.TicketType `json:"ticket_types"`
}

func (s *Server) GetEventHandler(c echo.Context) error {
	ctx := c.Request().Context()

	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event_id")
	}

	event, err := s.eventsService.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}

	ticketTypes, err := s.eventsService.GetTicketTypesForEvent(ctx, eventID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, GetEventResponse{
		Event:       event,
		TicketTypes: ticketTypes,
	})
}
