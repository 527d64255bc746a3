package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"

	bdomain "ticketing/internal/domain/bookings"
	edomain "ticketing/internal/domain/events"
	pdomain "ticketing/internal/domain/payments"
	tdomain "ticketing/internal/domain/tickets"
	"ticketing/internal/entities"
)

type BookingsRepo interface {
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*bdomain.Booking, error)
	ConfirmIfPending(ctx context.Context, id uuid.UUID, providerStatus string, paidAt time.Time) (bool, error)
}

type TicketsRepo interface {
	GetForBooking(ctx context.Context, bookingID uuid.UUID) ([]tdomain.Ticket, error)
	ActivateForBooking(ctx context.Context, bookingID uuid.UUID) error
}

type PaymentsRepo interface {
	UpdateTransactionStatus(ctx context.Context, providerOrderID string, status pdomain.Status, rawResponse []byte) error
}

type EventsRepo interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*edomain.Event, error)
}

type EventBus interface {
	Publish(ctx context.Context, event any) error
}

// Usecase converges a booking with the payment outcome reported by a
// provider, whether the outcome arrived via webhook, an explicit verify
// call, or a redirect-triggered status check. Calling it any number of
// times with the same outcome has the effect of calling it once.
type Usecase struct {
	bookingsRepo BookingsRepo
	ticketsRepo  TicketsRepo
	paymentsRepo PaymentsRepo
	eventsRepo   EventsRepo
	trManager    trm.Manager
	eventBus     EventBus
	now          func() time.Time
}

func NewUsecase(
	bookingsRepo BookingsRepo,
	ticketsRepo TicketsRepo,
	paymentsRepo PaymentsRepo,
	eventsRepo EventsRepo,
	trManager trm.Manager,
	eventBus EventBus,
) *Usecase {
	return &Usecase{
		bookingsRepo: bookingsRepo,
		ticketsRepo:  ticketsRepo,
		paymentsRepo: paymentsRepo,
		eventsRepo:   eventsRepo,
		trManager:    trManager,
		eventBus:     eventBus,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type Result struct {
	BookingId     uuid.UUID
	BookingStatus bdomain.Status
	Outcome       pdomain.Status
	Applied       bool
}

// Reconcile applies a payment outcome to the booking that owns the
// provider order. Terminal bookings are left untouched; a pending outcome
// mutates nothing; a failed outcome is recorded on the transaction only,
// so the customer can retry payment for the same booking.
func (u *Usecase) Reconcile(ctx context.Context, providerOrderID string, outcome pdomain.Status, rawResponse []byte) (*Result, error) {
	booking, err := u.bookingsRepo.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("resolve order %q: %w", providerOrderID, err)
	}

	if booking.Status.IsTerminal() {
		log.FromContext(ctx).
			WithField("booking_id", booking.Id).
			WithField("status", booking.Status).
			Info("booking already in terminal status, outcome ignored")
		return &Result{BookingId: booking.Id, BookingStatus: booking.Status, Outcome: outcome}, nil
	}

	switch outcome {
	case pdomain.StatusSuccess:
		return u.applySuccess(ctx, booking, rawResponse)

	case pdomain.StatusFailed:
		if err := u.paymentsRepo.UpdateTransactionStatus(ctx, providerOrderID, outcome, rawResponse); err != nil {
			return nil, fmt.Errorf("record failed outcome: %w", err)
		}
		return &Result{BookingId: booking.Id, BookingStatus: booking.Status, Outcome: outcome, Applied: true}, nil

	case pdomain.StatusPending:
		return &Result{BookingId: booking.Id, BookingStatus: booking.Status, Outcome: outcome}, nil

	default:
		return nil, fmt.Errorf("unknown payment outcome %q", outcome)
	}
}

// ReconcileOrder is a narrow adapter over Reconcile for callers that
// only need the resulting booking id and status.
func (u *Usecase) ReconcileOrder(ctx context.Context, providerOrderID string, outcome pdomain.Status, rawResponse []byte) (uuid.UUID, bdomain.Status, error) {
	result, err := u.Reconcile(ctx, providerOrderID, outcome, rawResponse)
	if err != nil {
		return uuid.Nil, "", err
	}
	return result.BookingId, result.BookingStatus, nil
}

func (u *Usecase) applySuccess(ctx context.Context, booking *bdomain.Booking, rawResponse []byte) (*Result, error) {
	now := u.now()

	result := &Result{BookingId: booking.Id, Outcome: pdomain.StatusSuccess}
	err := u.trManager.Do(ctx, func(ctx context.Context) error {
		confirmed, err := u.bookingsRepo.ConfirmIfPending(ctx, booking.Id, string(pdomain.StatusSuccess), now)
		if err != nil {
			return fmt.Errorf("confirm booking: %w", err)
		}
		if !confirmed {
			// Another delivery of the same outcome won the race.
			result.BookingStatus = bdomain.StatusConfirmed
			return nil
		}

		if err := u.ticketsRepo.ActivateForBooking(ctx, booking.Id); err != nil {
			return fmt.Errorf("activate tickets: %w", err)
		}
		if err := u.paymentsRepo.UpdateTransactionStatus(ctx, booking.Payment.ProviderOrderId, pdomain.StatusSuccess, rawResponse); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		tickets, err := u.ticketsRepo.GetForBooking(ctx, booking.Id)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		event, err := u.eventsRepo.GetEvent(ctx, booking.EventId)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		result.BookingStatus = bdomain.StatusConfirmed
		result.Applied = true

		return u.eventBus.Publish(ctx, entities.BookingConfirmed_v1{
			Header:        entities.NewEventHeaderWithIdempotencyKey(booking.Payment.ProviderOrderId),
			BookingID:     booking.Id.String(),
			EventID:       booking.EventId.String(),
			EventName:     event.Name,
			CustomerName:  booking.Customer.Name,
			CustomerEmail: booking.Customer.Email,
			TotalAmount:   booking.TotalAmount.String(),
			Currency:      booking.Currency,
			TicketCount:   len(tickets),
			ConfirmedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.FromContext(ctx).
		WithField("booking_id", booking.Id).
		WithField("applied", result.Applied).
		Info("payment outcome reconciled")

	return result, nil
}
