package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventInPast           = errors.New("event has already started")
	ErrTicketTypeNotFound    = errors.New("ticket type not found")
	ErrTicketTypeNotOnSale   = errors.New("ticket type is not on sale")
	ErrTicketTypeInactive    = errors.New("ticket type is inactive")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrMaxPerUserExceeded    = errors.New("requested quantity exceeds per-user limit")
	ErrInvalidSelection      = errors.New("invalid ticket selection")
)

type Event struct {
	Id          uuid.UUID `json:"event_id"`
	Name        string    `json:"name"`
	Venue       string    `json:"venue"`
	StartTime   time.Time `json:"start_time"`
	IsPublished bool      `json:"is_published"`
}

type TicketType struct {
	Id            uuid.UUID       `json:"ticket_type_id"`
	EventId       uuid.UUID       `json:"event_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Quantity      int             `json:"quantity"`
	QuantitySold  int             `json:"quantity_sold"`
	MaxPerUser    int             `json:"max_per_user"`
	StartSaleTime time.Time       `json:"start_sale_time"`
	EndSaleTime   *time.Time      `json:"end_sale_time,omitempty"`
	IsActive      bool            `json:"is_active"`
}

// Available returns how many tickets of this type can still be sold.
func (t TicketType) Available() int {
	return t.Quantity - t.QuantitySold
}

// OnSaleAt reports whether the sale window is open at the given time.
func (t TicketType) OnSaleAt(now time.Time) bool {
	if now.Before(t.StartSaleTime) {
		return false
	}
	if t.EndSaleTime != nil && !now.Before(*t.EndSaleTime) {
		return false
	}
	return true
}

// LineItem is one (ticket type, quantity) pair of a booking request.
type LineItem struct {
	TicketTypeId uuid.UUID `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
}
