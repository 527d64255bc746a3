package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	bdomain "ticketing/internal/domain/bookings"
	edomain "ticketing/internal/domain/events"
	tdomain "ticketing/internal/domain/tickets"
)

type BookingsRepo interface {
	Create(ctx context.Context, booking bdomain.Booking) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*bdomain.Booking, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string, refundAmount decimal.Decimal) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, refundDate time.Time) error
}

type EventsRepo interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*edomain.Event, error)
	GetTicketType(ctx context.Context, id uuid.UUID) (*edomain.TicketType, error)
	ReserveTicketType(ctx context.Context, id uuid.UUID, quantity int) error
	ReleaseTicketType(ctx context.Context, id uuid.UUID, quantity int) error
}

type TicketsRepo interface {
	CreateBatch(ctx context.Context, batch []tdomain.Ticket) error
	CancelForBooking(ctx context.Context, bookingID uuid.UUID) (map[uuid.UUID]int, error)
	MarkRefundedForBooking(ctx context.Context, bookingID uuid.UUID) error
}

// EventBus publishes domain events through the transactional outbox bound
// to the ambient transaction.
type EventBus interface {
	Publish(ctx context.Context, event any) error
}

// WithRetry re-executes f while it fails with a Postgres serialization
// conflict (40001). Any other error is returned immediately.
func WithRetry(attempts int, f func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var lastErr error
		for i := 0; i < attempts; i++ {
			err := f(ctx)
			if err == nil {
				return nil
			}

			pgErr := &pq.Error{}
			if errors.As(err, &pgErr) && pgErr.Code == "40001" {
				log.FromContext(ctx).Info("serialization conflict, retrying, attempt ", i+1)
				lastErr = err
				continue
			}

			return err
		}
		return lastErr
	}
}

func serializableSettings() trm.Settings {
	return trmsql.MustSettings(
		settings.Must(settings.WithCancelable(true)),
		trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable}),
	)
}

type CreateBookingUsecase struct {
	bookingsRepo BookingsRepo
	eventsRepo   EventsRepo
	ticketsRepo  TicketsRepo
	trManager    trm.Manager
	now          func() time.Time
}

func NewCreateBookingUsecase(
	bookingsRepo BookingsRepo,
	eventsRepo EventsRepo,
	ticketsRepo TicketsRepo,
	trManager trm.Manager,
) *CreateBookingUsecase {
	return &CreateBookingUsecase{
		bookingsRepo: bookingsRepo,
		eventsRepo:   eventsRepo,
		ticketsRepo:  ticketsRepo,
		trManager:    trManager,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type CreateBookingRequest struct {
	UserId   uuid.UUID
	EventId  uuid.UUID
	Lines    []edomain.LineItem
	Customer bdomain.Customer
}

type CreateBookingResult struct {
	BookingId   uuid.UUID
	TotalAmount decimal.Decimal
	Currency    string
	Status      bdomain.Status
}

// CreateBooking reserves inventory and creates a pending booking with its
// tickets in one serializable transaction. The conditional inventory
// update is the single source of truth for capacity; the preceding reads
// only produce friendlier errors.
func (u *CreateBookingUsecase) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	var result *CreateBookingResult
	err := u.trManager.DoWithSettings(ctx, serializableSettings(), WithRetry(3, func(ctx context.Context) error {
		now := u.now()

		event, err := u.eventsRepo.GetEvent(ctx, req.EventId)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if !event.IsPublished {
			return edomain.ErrEventNotFound
		}
		if !event.StartTime.After(now) {
			return edomain.ErrEventInPast
		}

		total := decimal.Zero
		currency := ""
		var tickets []tdomain.Ticket

		for _, line := range req.Lines {
			tt, err := u.eventsRepo.GetTicketType(ctx, line.TicketTypeId)
			if err != nil {
				return fmt.Errorf("get ticket type: %w", err)
			}
			if tt.EventId != req.EventId {
				return edomain.ErrTicketTypeNotFound
			}
			if !tt.OnSaleAt(now) {
				return edomain.ErrTicketTypeNotOnSale
			}
			if !tt.IsActive {
				return edomain.ErrTicketTypeInactive
			}
			if tt.MaxPerUser > 0 && line.Quantity > tt.MaxPerUser {
				return edomain.ErrMaxPerUserExceeded
			}
			if line.Quantity > tt.Available() {
				return edomain.ErrInsufficientInventory
			}

			if currency == "" {
				currency = tt.Currency
			} else if currency != tt.Currency {
				return edomain.ErrInvalidSelection
			}
			total = total.Add(tt.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))

			for i := 0; i < line.Quantity; i++ {
				tickets = append(tickets, tdomain.Ticket{
					Id:           uuid.New(),
					EventId:      req.EventId,
					TicketTypeId: line.TicketTypeId,
					OwnerId:      req.UserId,
					Price:        tt.Price,
					Currency:     tt.Currency,
					Status:       tdomain.StatusPending,
					CreatedAt:    now,
				})
			}
		}

		for _, line := range req.Lines {
			if err := u.eventsRepo.ReserveTicketType(ctx, line.TicketTypeId, line.Quantity); err != nil {
				return fmt.Errorf("reserve %s: %w", line.TicketTypeId, err)
			}
		}

		bookingID, err := u.bookingsRepo.Create(ctx, bdomain.Booking{
			Id:          uuid.New(),
			UserId:      req.UserId,
			EventId:     req.EventId,
			TotalAmount: total,
			Currency:    currency,
			Status:      bdomain.StatusPending,
			Customer:    req.Customer,
		})
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		for i := range tickets {
			tickets[i].BookingId = bookingID
		}
		if err := u.ticketsRepo.CreateBatch(ctx, tickets); err != nil {
			return fmt.Errorf("create tickets: %w", err)
		}

		log.FromContext(ctx).
			WithField("booking_id", bookingID).
			WithField("total_amount", total.String()).
			Info("booking created")

		result = &CreateBookingResult{
			BookingId:   bookingID,
			TotalAmount: total,
			Currency:    currency,
			Status:      bdomain.StatusPending,
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return result, nil
}

func validateLines(lines []edomain.LineItem) error {
	if len(lines) == 0 {
		return edomain.ErrInvalidSelection
	}
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return edomain.ErrInvalidSelection
		}
		if seen[line.TicketTypeId] {
			return edomain.ErrInvalidSelection
		}
		seen[line.TicketTypeId] = true
	}
	return nil
}
