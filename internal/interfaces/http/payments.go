package http

import (
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	bdomain "ticketing/internal/domain/bookings"
	pdomain "ticketing/internal/domain/payments"
	"ticketing/internal/gateway"
)

type GatewayResolver interface {
	Get(provider string) (gateway.PaymentGateway, error)
}

type InitiatePaymentRequest struct {
	BookingId string `json:"booking_id"`
	Amount    string `json:"amount"`
}

type InitiatePaymentResponse struct {
	TransactionId   uuid.UUID `json:"transaction_id"`
	ProviderOrderId string    `json:"provider_order_id"`
	RedirectURL     string    `json:"redirect_url"`
}

func (s *Server) InitiatePaymentHandler(c echo.Context) error {
	ctx := c.Request().Context()

	uid, err := userID(c)
	if err != nil {
		return err
	}

	var request InitiatePaymentRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	bookingID, err := uuid.Parse(request.BookingId)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking_id")
	}
	amount, err := decimal.NewFromString(request.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	result, err := s.paymentsService.Initiate(ctx, c.Param("provider"), bookingID, uid, amount)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, InitiatePaymentResponse{
		TransactionId:   result.TransactionId,
		ProviderOrderId: result.ProviderOrderId,
		RedirectURL:     result.RedirectURL,
	})
}

type VerifyPaymentRequest struct {
	ProviderOrderId string `json:"provider_order_id"`
}

type VerifyPaymentResponse struct {
	BookingId     uuid.UUID `json:"booking_id"`
	BookingStatus string    `json:"booking_status"`
	PaymentStatus string    `json:"payment_status"`
}

func (s *Server) VerifyPaymentHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var request VerifyPaymentRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.ProviderOrderId == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider_order_id is required")
	}

	result, err := s.paymentsService.Verify(ctx, c.Param("provider"), request.ProviderOrderId)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, VerifyPaymentResponse{
		BookingId:     result.BookingId,
		BookingStatus: string(result.BookingStatus),
		PaymentStatus: string(result.PaymentStatus),
	})
}

type RefundPaymentRequest struct {
	ProviderOrderId string `json:"provider_order_id"`
	Amount          string `json:"amount"`
	Reason          string `json:"reason"`
}

type RefundPaymentResponse struct {
	RefundId         uuid.UUID `json:"refund_id"`
	ProviderRefundId string    `json:"provider_refund_id"`
	Status           string    `json:"status"`
}

func (s *Server) RefundPaymentHandler(c echo.Context) error {
	ctx := c.Request().Context()

	uid, err := userID(c)
	if err != nil {
		return err
	}

	var request RefundPaymentRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(request.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	result, err := s.paymentsService.Refund(ctx, c.Param("provider"), request.ProviderOrderId, uid, amount, request.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RefundPaymentResponse{
		RefundId:         result.RefundId,
		ProviderRefundId: result.ProviderRefundId,
		Status:           string(result.Status),
	})
}

// RedirectHandler lands the customer's browser after provider checkout.
// It runs a status check against the provider and forwards the customer
// to the frontend; the authoritative state change still comes through
// reconciliation, never from the redirect alone.
func (s *Server) RedirectHandler(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.QueryParam("order_id")
	if orderID == "" {
		orderID = c.QueryParam("transactionId")
	}
	if orderID == "" {
		return c.Redirect(http.StatusFound, s.failureURL)
	}

	result, err := s.paymentsService.Verify(ctx, c.Param("provider"), orderID)
	if err != nil {
		log.FromContext(ctx).
			WithField("provider_order_id", orderID).
			WithField("error", err).
			Error("Redirect verification failed")
		return c.Redirect(http.StatusFound, s.failureURL)
	}

	if result.PaymentStatus == pdomain.StatusSuccess && result.BookingStatus == bdomain.StatusConfirmed {
		return c.Redirect(http.StatusFound, fmt.Sprintf("%s?booking_id=%s", s.successURL, result.BookingId))
	}

	return c.Redirect(http.StatusFound, fmt.Sprintf("%s?booking_id=%s", s.failureURL, result.BookingId))
}
