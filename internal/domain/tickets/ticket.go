package tickets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
	StatusExpired   Status = "expired"
	StatusUsed      Status = "used"
)

// Ticket is a single purchased unit. It is created pending together with
// its booking and activated only when the booking is confirmed.
type Ticket struct {
	Id           uuid.UUID       `json:"ticket_id"`
	BookingId    uuid.UUID       `json:"booking_id"`
	EventId      uuid.UUID       `json:"event_id"`
	TicketTypeId uuid.UUID       `json:"ticket_type_id"`
	OwnerId      uuid.UUID       `json:"owner_id"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
