package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the provider-independent payment outcome vocabulary. Every
// adapter maps its provider's native statuses onto this set.
type Status string

const (
	StatusSuccess Status = "PAYMENT_SUCCESS"
	StatusPending Status = "PAYMENT_PENDING"
	StatusFailed  Status = "PAYMENT_FAILED"
)

// Transaction is the provider-side record of one initiated payment
// attempt. Rows are appended and updated, never deleted.
type Transaction struct {
	Id              uuid.UUID       `json:"transaction_id"`
	Provider        string          `json:"provider"`
	BookingId       uuid.UUID       `json:"booking_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ProviderOrderId string          `json:"provider_order_id"`
	Status          Status          `json:"status"`
	RawRequest      []byte          `json:"raw_request,omitempty"`
	RawResponse     []byte          `json:"raw_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund records one refund initiated against a transaction. Partial
// refunds are supported, so a transaction may own several refunds.
type Refund struct {
	Id               uuid.UUID       `json:"refund_id"`
	TransactionId    uuid.UUID       `json:"transaction_id"`
	BookingId        uuid.UUID       `json:"booking_id"`
	ProviderRefundId string          `json:"provider_refund_id"`
	Amount           decimal.Decimal `json:"amount"`
	Status           RefundStatus    `json:"status"`
	RawResponse      []byte          `json:"raw_response,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
