package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bdomain "ticketing/internal/domain/bookings"
	pdomain "ticketing/internal/domain/payments"
	"ticketing/internal/gateway"
)

// ErrAmountMismatch is returned when the amount submitted for payment
// does not equal the booking total.
var (
	ErrAmountMismatch = errors.New("payment amount does not match booking total")

	// ErrBookingNotPayable is returned when payment is initiated for a
	// booking that is no longer pending.
	ErrBookingNotPayable = errors.New("booking is not awaiting payment")

	// ErrRefundExceedsCaptured is returned when a refund would push the
	// refunded total past the captured amount.
	ErrRefundExceedsCaptured = errors.New("refund exceeds captured amount")
)

type BookingsRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*bdomain.Booking, error)
	SetPaymentInitiated(ctx context.Context, id uuid.UUID, method, providerOrderID, providerStatus string, rawResponse []byte) error
}

type PaymentsRepo interface {
	CreateTransaction(ctx context.Context, tx pdomain.Transaction) (uuid.UUID, error)
	GetTransactionByOrderID(ctx context.Context, providerOrderID string) (*pdomain.Transaction, error)
	CreateRefund(ctx context.Context, refund pdomain.Refund) (uuid.UUID, error)
	GetRefundsForBooking(ctx context.Context, bookingID uuid.UUID) ([]pdomain.Refund, error)
}

type GatewayResolver interface {
	Get(provider string) (gateway.PaymentGateway, error)
}

// Reconciler converges bookings with provider-reported outcomes; the
// verify flow funnels status checks through it.
type Reconciler interface {
	ReconcileOrder(ctx context.Context, providerOrderID string, outcome pdomain.Status, rawResponse []byte) (bookingID uuid.UUID, bookingStatus bdomain.Status, err error)
}

type Usecase struct {
	bookingsRepo BookingsRepo
	paymentsRepo PaymentsRepo
	gateways     GatewayResolver
	reconciler   Reconciler
	trManager    trm.Manager
	returnURL    string
	now          func() time.Time
}

func NewUsecase(
	bookingsRepo BookingsRepo,
	paymentsRepo PaymentsRepo,
	gateways GatewayResolver,
	reconciler Reconciler,
	trManager trm.Manager,
	returnURL string,
) *Usecase {
	return &Usecase{
		bookingsRepo: bookingsRepo,
		paymentsRepo: paymentsRepo,
		gateways:     gateways,
		reconciler:   reconciler,
		trManager:    trManager,
		returnURL:    returnURL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type InitiateResult struct {
	TransactionId   uuid.UUID
	ProviderOrderId string
	RedirectURL     string
}

// Initiate starts a payment for a pending booking with the chosen
// provider. The provider call runs outside any DB transaction; only its
// outcome is persisted.
func (u *Usecase) Initiate(ctx context.Context, provider string, bookingID, userID uuid.UUID, amount decimal.Decimal) (*InitiateResult, error) {
	gw, err := u.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	booking, err := u.bookingsRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking.UserId != userID {
		return nil, bdomain.ErrNotBookingOwner
	}
	if booking.Status != bdomain.StatusPending {
		return nil, ErrBookingNotPayable
	}
	if !amount.Equal(booking.TotalAmount) {
		return nil, ErrAmountMismatch
	}

	// A fresh order id per attempt: a failed attempt leaves the booking
	// pending, and providers reject a resubmitted order id as a duplicate.
	orderID := fmt.Sprintf("%s-%d", bookingID, u.now().UnixNano())

	resp, err := gw.Initiate(ctx, gateway.InitiateRequest{
		BookingId: bookingID,
		OrderId:   orderID,
		Amount:    booking.TotalAmount,
		Currency:  booking.Currency,
		Customer: gateway.Customer{
			Name:  booking.Customer.Name,
			Email: booking.Customer.Email,
			Phone: booking.Customer.Phone,
		},
		ReturnURL: fmt.Sprintf("%s/%s/redirect", u.returnURL, provider),
	})
	if err != nil {
		return nil, err
	}

	now := u.now()
	var transactionID uuid.UUID
	err = u.trManager.Do(ctx, func(ctx context.Context) error {
		transactionID, err = u.paymentsRepo.CreateTransaction(ctx, pdomain.Transaction{
			Id:              uuid.New(),
			Provider:        provider,
			BookingId:       bookingID,
			Amount:          booking.TotalAmount,
			Currency:        booking.Currency,
			ProviderOrderId: resp.ProviderOrderId,
			Status:          pdomain.StatusPending,
			RawRequest:      resp.RawRequest,
			RawResponse:     resp.RawResponse,
			CreatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		return u.bookingsRepo.SetPaymentInitiated(ctx, bookingID, provider, resp.ProviderOrderId, string(pdomain.StatusPending), resp.RawResponse)
	})
	if err != nil {
		return nil, err
	}

	log.FromContext(ctx).
		WithField("booking_id", bookingID).
		WithField("provider", provider).
		WithField("provider_order_id", resp.ProviderOrderId).
		Info("payment initiated")

	return &InitiateResult{
		TransactionId:   transactionID,
		ProviderOrderId: resp.ProviderOrderId,
		RedirectURL:     resp.RedirectURL,
	}, nil
}

type VerifyResult struct {
	BookingId     uuid.UUID
	BookingStatus bdomain.Status
	PaymentStatus pdomain.Status
}

// Verify asks the provider for the authoritative order status and feeds
// the answer through reconciliation. It backs both the explicit verify
// endpoint and the browser redirect landing.
func (u *Usecase) Verify(ctx context.Context, provider, providerOrderID string) (*VerifyResult, error) {
	gw, err := u.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	status, err := gw.CheckStatus(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}

	bookingID, bookingStatus, err := u.reconciler.ReconcileOrder(ctx, providerOrderID, status, nil)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		BookingId:     bookingID,
		BookingStatus: bookingStatus,
		PaymentStatus: status,
	}, nil
}

type RefundResult struct {
	RefundId         uuid.UUID
	ProviderRefundId string
	Status           pdomain.RefundStatus
}

// Refund issues a provider refund against an existing transaction on
// behalf of the booking owner; cancellation-policy checks are the
// caller's concern.
func (u *Usecase) Refund(ctx context.Context, provider, providerOrderID string, userID uuid.UUID, amount decimal.Decimal, reason string) (*RefundResult, error) {
	gw, err := u.gateways.Get(provider)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}

	tx, err := u.paymentsRepo.GetTransactionByOrderID(ctx, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx.Provider != provider {
		return nil, fmt.Errorf("%w: order %q belongs to %s", gateway.ErrOrderNotFound, providerOrderID, tx.Provider)
	}

	booking, err := u.bookingsRepo.GetByID(ctx, tx.BookingId)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking.UserId != userID {
		return nil, bdomain.ErrNotBookingOwner
	}
	if amount.GreaterThan(tx.Amount) {
		return nil, gateway.ErrInvalidAmount
	}

	refunds, err := u.paymentsRepo.GetRefundsForBooking(ctx, tx.BookingId)
	if err != nil {
		return nil, fmt.Errorf("get refunds: %w", err)
	}
	refunded := decimal.Zero
	for _, r := range refunds {
		if r.Status == pdomain.RefundStatusFailed {
			continue
		}
		refunded = refunded.Add(r.Amount)
	}
	if refunded.Add(amount).GreaterThan(tx.Amount) {
		return nil, fmt.Errorf("%w: %s already refunded of %s", ErrRefundExceedsCaptured, refunded, tx.Amount)
	}

	resp, err := gw.Refund(ctx, providerOrderID, amount, reason)
	if err != nil {
		return nil, err
	}

	refundID, err := u.paymentsRepo.CreateRefund(ctx, pdomain.Refund{
		Id:               uuid.New(),
		TransactionId:    tx.Id,
		BookingId:        tx.BookingId,
		ProviderRefundId: resp.ProviderRefundId,
		Amount:           amount,
		Status:           resp.Status,
		RawResponse:      resp.RawResponse,
		CreatedAt:        u.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}

	return &RefundResult{
		RefundId:         refundID,
		ProviderRefundId: resp.ProviderRefundId,
		Status:           resp.Status,
	}, nil
}
