package entities

import (
	"time"
)

// BookingConfirmed_v1 is published through the transactional outbox in the
// same transaction that flips the booking to confirmed. Side-effect
// handlers (email, push) subscribe to it; their failures never reach the
// booking state.
type BookingConfirmed_v1 struct {
	Header EventHeader `json:"header"`

	BookingID     string    `json:"booking_id"`
	EventID       string    `json:"event_id"`
	EventName     string    `json:"event_name"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	TotalAmount   string    `json:"total_amount"`
	Currency      string    `json:"currency"`
	TicketCount   int       `json:"ticket_count"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

type BookingCancelled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID     string    `json:"booking_id"`
	EventID       string    `json:"event_id"`
	CustomerEmail string    `json:"customer_email"`
	Reason        string    `json:"reason"`
	RefundAmount  string    `json:"refund_amount"`
	Currency      string    `json:"currency"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type BookingRefunded_v1 struct {
	Header EventHeader `json:"header"`

	BookingID     string    `json:"booking_id"`
	RefundID      string    `json:"refund_id"`
	CustomerEmail string    `json:"customer_email"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	RefundedAt    time.Time `json:"refunded_at"`
}
