package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	paymentsuc "ticketing/internal/application/usecases/payments"
	bdomain "ticketing/internal/domain/bookings"
	edomain "ticketing/internal/domain/events"
	"ticketing/internal/gateway"
	"ticketing/internal/repository"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler translates domain errors into stable HTTP statuses and
// machine-readable codes. Anything unmapped is a 500 with the detail
// kept out of the response body.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, _ := httpErr.Message.(string)
		_ = c.JSON(httpErr.Code, errorResponse{Error: errorBody{Code: codeForStatus(httpErr.Code), Message: msg}})
		return
	}

	status, code := classify(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}

	_ = c.JSON(status, errorResponse{Error: errorBody{Code: code, Message: msg}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, edomain.ErrEventNotFound),
		errors.Is(err, edomain.ErrTicketTypeNotFound),
		errors.Is(err, bdomain.ErrBookingNotFound),
		errors.Is(err, gateway.ErrOrderNotFound),
		errors.Is(err, repository.ErrTransactionNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, bdomain.ErrNotBookingOwner):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, edomain.ErrInsufficientInventory):
		return http.StatusBadRequest, "insufficient_inventory"

	case errors.Is(err, edomain.ErrMaxPerUserExceeded):
		return http.StatusBadRequest, "max_per_user_exceeded"

	case errors.Is(err, edomain.ErrInvalidSelection),
		errors.Is(err, edomain.ErrEventInPast),
		errors.Is(err, edomain.ErrTicketTypeNotOnSale),
		errors.Is(err, edomain.ErrTicketTypeInactive),
		errors.Is(err, paymentsuc.ErrAmountMismatch),
		errors.Is(err, gateway.ErrInvalidAmount),
		errors.Is(err, gateway.ErrUnknownProvider):
		return http.StatusBadRequest, "validation_failed"

	case errors.Is(err, bdomain.ErrCancellationWindowClosed):
		return http.StatusConflict, "cancellation_window_closed"

	case errors.Is(err, bdomain.ErrNotCancellable),
		errors.Is(err, paymentsuc.ErrBookingNotPayable),
		errors.Is(err, paymentsuc.ErrRefundExceedsCaptured),
		errors.Is(err, bdomain.ErrPaymentNotInitiated):
		return http.StatusConflict, "conflict"

	case errors.Is(err, gateway.ErrTimeout):
		return http.StatusGatewayTimeout, "provider_timeout"

	case isRejected(err):
		return http.StatusBadGateway, "provider_rejected"

	case errors.Is(err, gateway.ErrMisconfigured):
		return http.StatusInternalServerError, "internal"

	default:
		return http.StatusInternalServerError, "internal"
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return "bad_request"
	}
}

func isRejected(err error) bool {
	var rejected *gateway.RejectedError
	return errors.As(err, &rejected)
}
