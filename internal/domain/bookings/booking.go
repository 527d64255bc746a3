package bookings

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound          = errors.New("booking not found")
	ErrNotBookingOwner          = errors.New("booking belongs to another user")
	ErrNotCancellable           = errors.New("booking is not in a cancellable status")
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
	ErrPaymentNotInitiated      = errors.New("payment was not initiated for booking")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// IsTerminal reports whether no further payment outcome may change the booking.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusRefunded
}

func (s Status) IsCancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentInfo is the provider-side view embedded in a booking.
type PaymentInfo struct {
	Method          string     `json:"method"`
	ProviderOrderId string     `json:"provider_order_id"`
	ProviderStatus  string     `json:"provider_status"`
	RawResponse     []byte     `json:"raw_response,omitempty"`
	InitiatedAt     *time.Time `json:"initiated_at,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
}

type Booking struct {
	Id          uuid.UUID       `json:"booking_id"`
	UserId      uuid.UUID       `json:"user_id"`
	EventId     uuid.UUID       `json:"event_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	Customer    Customer        `json:"customer"`
	Payment     PaymentInfo     `json:"payment"`

	CancellationReason string           `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	RefundAmount       *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundDate         *time.Time       `json:"refund_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
