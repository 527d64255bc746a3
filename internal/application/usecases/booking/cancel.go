package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bdomain "ticketing/internal/domain/bookings"
	pdomain "ticketing/internal/domain/payments"
	"ticketing/internal/entities"
	"ticketing/internal/gateway"
	"ticketing/internal/idempotency"
)

type PaymentsRepo interface {
	GetTransactionByOrderID(ctx context.Context, providerOrderID string) (*pdomain.Transaction, error)
	CreateRefund(ctx context.Context, refund pdomain.Refund) (uuid.UUID, error)
}

type GatewayResolver interface {
	Get(provider string) (gateway.PaymentGateway, error)
}

type CancelBookingUsecase struct {
	bookingsRepo BookingsRepo
	eventsRepo   EventsRepo
	ticketsRepo  TicketsRepo
	paymentsRepo PaymentsRepo
	gateways     GatewayResolver
	trManager    trm.Manager
	eventBus     EventBus
	policy       bdomain.RefundPolicy
	now          func() time.Time
}

func NewCancelBookingUsecase(
	bookingsRepo BookingsRepo,
	eventsRepo EventsRepo,
	ticketsRepo TicketsRepo,
	paymentsRepo PaymentsRepo,
	gateways GatewayResolver,
	trManager trm.Manager,
	eventBus EventBus,
) *CancelBookingUsecase {
	return &CancelBookingUsecase{
		bookingsRepo: bookingsRepo,
		eventsRepo:   eventsRepo,
		ticketsRepo:  ticketsRepo,
		paymentsRepo: paymentsRepo,
		gateways:     gateways,
		trManager:    trManager,
		eventBus:     eventBus,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type CancelBookingResult struct {
	BookingId    uuid.UUID
	Status       bdomain.Status
	RefundAmount decimal.Decimal
	RefundTier   bdomain.RefundTier
	RefundId     *uuid.UUID
}

// CancelBooking cancels a booking on behalf of its owner. The refund
// amount follows the time-tiered policy against the event start. The
// cancellation itself commits first; the provider refund runs after the
// commit so a provider outage can never roll back a cancellation.
func (u *CancelBookingUsecase) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*CancelBookingResult, error) {
	booking, err := u.bookingsRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking.UserId != userID {
		return nil, bdomain.ErrNotBookingOwner
	}
	if !booking.Status.IsCancellable() {
		return nil, bdomain.ErrNotCancellable
	}

	event, err := u.eventsRepo.GetEvent(ctx, booking.EventId)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	now := u.now()
	refundAmount, tier, err := u.policy.RefundAmount(booking.TotalAmount, event.StartTime, now)
	if err != nil {
		return nil, err
	}

	wasConfirmed := booking.Status == bdomain.StatusConfirmed

	// Nothing was ever captured for an unpaid booking, so nothing is owed
	// regardless of the tier.
	if !wasConfirmed {
		refundAmount = decimal.Zero
	}

	err = u.trManager.DoWithSettings(ctx, serializableSettings(), WithRetry(3, func(ctx context.Context) error {
		cancelled, err := u.bookingsRepo.MarkCancelled(ctx, bookingID, reason, refundAmount)
		if err != nil {
			return fmt.Errorf("mark cancelled: %w", err)
		}
		if !cancelled {
			return bdomain.ErrNotCancellable
		}

		released, err := u.ticketsRepo.CancelForBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("cancel tickets: %w", err)
		}
		for ticketTypeID, count := range released {
			if err := u.eventsRepo.ReleaseTicketType(ctx, ticketTypeID, count); err != nil {
				return fmt.Errorf("release %s: %w", ticketTypeID, err)
			}
		}

		return u.eventBus.Publish(ctx, entities.BookingCancelled_v1{
			Header:        entities.NewEventHeaderWithIdempotencyKey(idempotency.GetKey(ctx)),
			BookingID:     bookingID.String(),
			EventID:       booking.EventId.String(),
			CustomerEmail: booking.Customer.Email,
			Reason:        reason,
			RefundAmount:  refundAmount.String(),
			Currency:      booking.Currency,
			CancelledAt:   now,
		})
	}))
	if err != nil {
		return nil, err
	}

	result := &CancelBookingResult{
		BookingId:    bookingID,
		Status:       bdomain.StatusCancelled,
		RefundAmount: refundAmount,
		RefundTier:   tier,
	}

	if !wasConfirmed || !refundAmount.IsPositive() {
		return result, nil
	}

	refundID, err := u.executeRefund(ctx, booking, refundAmount, reason)
	if err != nil {
		// The booking stays cancelled with the owed amount recorded; the
		// refund can be re-driven through the refund endpoint.
		log.FromContext(ctx).
			WithField("booking_id", bookingID).
			Error("provider refund failed after cancellation", err)
		return result, fmt.Errorf("booking cancelled, refund failed: %w", err)
	}

	result.Status = bdomain.StatusRefunded
	result.RefundId = &refundID
	return result, nil
}

func (u *CancelBookingUsecase) executeRefund(ctx context.Context, booking *bdomain.Booking, amount decimal.Decimal, reason string) (uuid.UUID, error) {
	if booking.Payment.ProviderOrderId == "" {
		return uuid.Nil, bdomain.ErrPaymentNotInitiated
	}

	gw, err := u.gateways.Get(booking.Payment.Method)
	if err != nil {
		return uuid.Nil, err
	}

	tx, err := u.paymentsRepo.GetTransactionByOrderID(ctx, booking.Payment.ProviderOrderId)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get transaction: %w", err)
	}

	// Provider call stays outside any DB transaction.
	resp, err := gw.Refund(ctx, booking.Payment.ProviderOrderId, amount, reason)
	if err != nil {
		return uuid.Nil, err
	}

	now := u.now()
	var refundID uuid.UUID
	err = u.trManager.Do(ctx, func(ctx context.Context) error {
		refundID, err = u.paymentsRepo.CreateRefund(ctx, pdomain.Refund{
			Id:               uuid.New(),
			TransactionId:    tx.Id,
			BookingId:        booking.Id,
			ProviderRefundId: resp.ProviderRefundId,
			Amount:           amount,
			Status:           resp.Status,
			RawResponse:      resp.RawResponse,
			CreatedAt:        now,
		})
		if err != nil {
			return fmt.Errorf("record refund: %w", err)
		}

		if err := u.bookingsRepo.MarkRefunded(ctx, booking.Id, now); err != nil {
			return fmt.Errorf("mark refunded: %w", err)
		}
		if err := u.ticketsRepo.MarkRefundedForBooking(ctx, booking.Id); err != nil {
			return fmt.Errorf("mark tickets refunded: %w", err)
		}

		return u.eventBus.Publish(ctx, entities.BookingRefunded_v1{
			Header:        entities.NewEventHeaderWithIdempotencyKey(resp.ProviderRefundId),
			BookingID:     booking.Id.String(),
			RefundID:      refundID.String(),
			CustomerEmail: booking.Customer.Email,
			Amount:        amount.String(),
			Currency:      booking.Currency,
			RefundedAt:    now,
		})
	})
	if err != nil {
		return uuid.Nil, err
	}

	return refundID, nil
}
