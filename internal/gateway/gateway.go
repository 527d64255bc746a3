package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketing/internal/domain/payments"
)

var (
	ErrMisconfigured    = errors.New("payment gateway is not configured")
	ErrInvalidAmount    = errors.New("payment amount must be positive")
	ErrTimeout          = errors.New("payment gateway timed out")
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrOrderNotFound    = errors.New("provider order not found")
	ErrSignatureInvalid = errors.New("inbound signature verification failed")
)

// RejectedError carries the provider's own decline message. It is never
// retried; the message is surfaced verbatim to the caller.
type RejectedError struct {
	Provider string
	Code     string
	Message  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected the request: %s (%s)", e.Provider, e.Message, e.Code)
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type InitiateRequest struct {
	BookingId uuid.UUID
	// OrderId is the provider-facing order id for this attempt. Providers
	// reject duplicate order ids, so each initiation must carry a fresh one.
	OrderId   string
	Amount    decimal.Decimal
	Currency  string
	Customer  Customer
	ReturnURL string
}

type InitiateResponse struct {
	ProviderOrderId string
	RedirectURL     string
	RawRequest      []byte
	RawResponse     []byte
}

type RefundResponse struct {
	ProviderRefundId string
	Status           payments.RefundStatus
	RawResponse      []byte
}

// PaymentGateway is the canonical interface every provider adapter
// implements. All network calls run with a bounded timeout; adapters
// surface ErrTimeout distinctly from RejectedError so callers can retry
// only the former.
type PaymentGateway interface {
	Provider() string

	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	CheckStatus(ctx context.Context, providerOrderId string) (payments.Status, error)
	Refund(ctx context.Context, providerOrderId string, amount decimal.Decimal, reason string) (*RefundResponse, error)

	// VerifyInboundSignature recomputes the expected signature for a raw
	// webhook payload and compares it against the value supplied by the
	// provider. Payloads that fail verification must be rejected before
	// any state mutation.
	VerifyInboundSignature(payload []byte, headers map[string]string) bool

	// WebhookOutcome extracts the provider order id and canonical status
	// from a verified webhook payload.
	WebhookOutcome(payload []byte) (providerOrderId string, status payments.Status, err error)
}
