package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ticketing/internal/application/usecases/booking"
	bdomain "ticketing/internal/domain/bookings"
	edomain "ticketing/internal/domain/events"
)

type CreateBookingRequest struct {
	EventId  string            `json:"event_id"`
	Lines    []LineItemRequest `json:"ticket_types"`
	Customer bdomain.Customer  `json:"customer"`
}

type LineItemRequest struct {
	TicketTypeId string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type CreateBookingResponse struct {
	BookingId   uuid.UUID `json:"booking_id"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
}

func (s *Server) CreateBookingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	uid, err := userID(c)
	if err != nil {
		return err
	}

	var request CreateBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	eventID, err := uuid.Parse(request.EventId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event_id")
	}

	lines := make([]edomain.LineItem, 0, len(request.Lines))
	for _, line := range request.Lines {
		ticketTypeID, err := uuid.Parse(line.TicketTypeId)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket_type_id")
		}
		lines = append(lines, edomain.LineItem{TicketTypeId: ticketTypeID, Quantity: line.Quantity})
	}

	result, err := s.createBooking.CreateBooking(ctx, booking.CreateBookingRequest{
		UserId:   uid,
		EventId:  eventID,
		Lines:    lines,
		Customer: request.Customer,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CreateBookingResponse{
		BookingId:   result.BookingId,
		TotalAmount: result.TotalAmount.String(),
		Currency:    result.Currency,
		Status:      string(result.Status),
	})
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type CancelBookingResponse struct {
	BookingId    uuid.UUID `json:"booking_id"`
	Status       string    `json:"status"`
	RefundAmount string    `json:"refund_amount"`
	RefundTier   string    `json:"refund_tier"`
	RefundId     *string   `json:"refund_id,omitempty"`
}

func (s *Server) CancelBookingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	uid, err := userID(c)
	if err != nil {
		return err
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking_id")
	}

	var request CancelBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	result, err := s.cancelBooking.CancelBooking(ctx, bookingID, uid, request.Reason)
	if err != nil {
		return err
	}

	response := CancelBookingResponse{
		BookingId:    result.BookingId,
		Status:       string(result.Status),
		RefundAmount: result.RefundAmount.String(),
		RefundTier:   string(result.RefundTier),
	}
	if result.RefundId != nil {
		id := result.RefundId.String()
		response.RefundId = &id
	}

	return c.JSON(http.StatusOK, response)
}

type GetBookingResponse struct {
	Booking *bdomain.Booking `json:"booking"`
	Tickets int              `json:"ticket_count"`
}

func (s *Server) GetBookingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	uid, err := userID(c)
	if err != nil {
		return err
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking_id")
	}

	b, err := s.bookingsReader.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserId != uid {
		return bdomain.ErrNotBookingOwner
	}

	tickets, err := s.ticketsReader.GetForBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, GetBookingResponse{
		Booking: b,
		Tickets: len(tickets),
	})
}
