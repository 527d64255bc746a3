package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bdomain "ticketing/internal/domain/bookings"
	pdomain "ticketing/internal/domain/payments"
	"ticketing/internal/gateway"
)

type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (fakeTxManager) DoWithSettings(ctx context.Context, _ trm.Settings, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeBookingsRepo struct {
	booking   *bdomain.Booking
	initiated bool
}

func (f *fakeBookingsRepo) GetByID(_ context.Context, id uuid.UUID) (*bdomain.Booking, error) {
	if f.booking == nil || f.booking.Id != id {
		return nil, bdomain.ErrBookingNotFound
	}
	copied := *f.booking
	return &copied, nil
}

func (f *fakeBookingsRepo) SetPaymentInitiated(_ context.Context, _ uuid.UUID, method, providerOrderID, providerStatus string, _ []byte) error {
	f.initiated = true
	f.booking.Payment = bdomain.PaymentInfo{
		Method:          method,
		ProviderOrderId: providerOrderID,
		ProviderStatus:  providerStatus,
	}
	return nil
}

type fakePaymentsRepo struct {
	transactions map[string]*pdomain.Transaction
	refunds      []pdomain.Refund
}

func (f *fakePaymentsRepo) CreateTransaction(_ context.Context, tx pdomain.Transaction) (uuid.UUID, error) {
	if f.transactions == nil {
		f.transactions = map[string]*pdomain.Transaction{}
	}
	f.transactions[tx.ProviderOrderId] = &tx
	return tx.Id, nil
}

func (f *fakePaymentsRepo) GetTransactionByOrderID(_ context.Context, providerOrderID string) (*pdomain.Transaction, error) {
	tx, ok := f.transactions[providerOrderID]
	if !ok {
		return nil, gateway.ErrOrderNotFound
	}
	return tx, nil
}

func (f *fakePaymentsRepo) CreateRefund(_ context.Context, refund pdomain.Refund) (uuid.UUID, error) {
	f.refunds = append(f.refunds, refund)
	return refund.Id, nil
}

func (f *fakePaymentsRepo) GetRefundsForBooking(_ context.Context, bookingID uuid.UUID) ([]pdomain.Refund, error) {
	var out []pdomain.Refund
	for _, r := range f.refunds {
		if r.BookingId == bookingID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeGateway struct {
	provider    string
	initiateErr error
	status      pdomain.Status
	statusErr   error
	lastReq     gateway.InitiateRequest
}

func (f *fakeGateway) Provider() string { return f.provider }

func (f *fakeGateway) Initiate(_ context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	f.lastReq = req
	return &gateway.InitiateResponse{
		ProviderOrderId: req.OrderId,
		RedirectURL:     "https://pay.example.com/checkout",
	}, nil
}

func (f *fakeGateway) CheckStatus(context.Context, string) (pdomain.Status, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeGateway) Refund(_ context.Context, _ string, _ decimal.Decimal, _ string) (*gateway.RefundResponse, error) {
	return &gateway.RefundResponse{ProviderRefundId: "REF-9", Status: pdomain.RefundStatusCompleted}, nil
}

func (f *fakeGateway) VerifyInboundSignature([]byte, map[string]string) bool { return true }

func (f *fakeGateway) WebhookOutcome([]byte) (string, pdomain.Status, error) {
	return "", "", nil
}

type fakeReconciler struct {
	bookingID uuid.UUID
	status    bdomain.Status
	calls     []pdomain.Status
}

func (f *fakeReconciler) ReconcileOrder(_ context.Context, _ string, outcome pdomain.Status, _ []byte) (uuid.UUID, bdomain.Status, error) {
	f.calls = append(f.calls, outcome)
	return f.bookingID, f.status, nil
}

func pendingBooking(userID uuid.UUID) *bdomain.Booking {
	return &bdomain.Booking{
		Id:          uuid.New(),
		UserId:      userID,
		EventId:     uuid.New(),
		TotalAmount: decimal.NewFromInt(2500),
		Currency:    "INR",
		Status:      bdomain.StatusPending,
		Customer:    bdomain.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"},
	}
}

func TestInitiate(t *testing.T) {
	userID := uuid.New()
	bookings := &fakeBookingsRepo{booking: pendingBooking(userID)}
	payments := &fakePaymentsRepo{}
	gw := &fakeGateway{provider: "phonepe"}

	u := NewUsecase(bookings, payments, gateway.NewRegistry(gw), &fakeReconciler{}, fakeTxManager{}, "https://tickets.example.com/payments")

	result, err := u.Initiate(context.Background(), "phonepe", bookings.booking.Id, userID, decimal.NewFromInt(2500))
	require.NoError(t, err)

	assert.NotEmpty(t, result.ProviderOrderId)
	assert.Equal(t, "https://pay.example.com/checkout", result.RedirectURL)
	assert.True(t, bookings.initiated)
	assert.Equal(t, "https://tickets.example.com/payments/phonepe/redirect", gw.lastReq.ReturnURL)

	tx := payments.transactions[result.ProviderOrderId]
	require.NotNil(t, tx)
	assert.Equal(t, pdomain.StatusPending, tx.Status)
	assert.True(t, decimal.NewFromInt(2500).Equal(tx.Amount))
}

func TestInitiateRetriesWithFreshOrderId(t *testing.T) {
	userID := uuid.New()
	bookings := &fakeBookingsRepo{booking: pendingBooking(userID)}
	gw := &fakeGateway{provider: "phonepe"}

	u := NewUsecase(bookings, &fakePaymentsRepo{}, gateway.NewRegistry(gw), &fakeReconciler{}, fakeTxManager{}, "https://tickets.example.com/payments")

	first, err := u.Initiate(context.Background(), "phonepe", bookings.booking.Id, userID, decimal.NewFromInt(2500))
	require.NoError(t, err)

	// The booking stays pending after a failed attempt; a retry must not
	// resubmit the same provider order id.
	second, err := u.Initiate(context.Background(), "phonepe", bookings.booking.Id, userID, decimal.NewFromInt(2500))
	require.NoError(t, err)

	assert.NotEqual(t, first.ProviderOrderId, second.ProviderOrderId)
	assert.True(t, strings.HasPrefix(second.ProviderOrderId, bookings.booking.Id.String()))
}

func TestInitiateRejections(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		provider string
		userID   func() uuid.UUID
		amount   decimal.Decimal
		mutate   func(b *bdomain.Booking)
		wantErr  error
	}{
		{
			name:     "unknown provider",
			provider: "paypal",
			amount:   decimal.NewFromInt(2500),
			wantErr:  gateway.ErrUnknownProvider,
		},
		{
			name:     "not the owner",
			provider: "phonepe",
			userID:   uuid.New,
			amount:   decimal.NewFromInt(2500),
			wantErr:  bdomain.ErrNotBookingOwner,
		},
		{
			name:     "amount mismatch",
			provider: "phonepe",
			amount:   decimal.NewFromInt(100),
			wantErr:  ErrAmountMismatch,
		},
		{
			name:     "booking already confirmed",
			provider: "phonepe",
			amount:   decimal.NewFromInt(2500),
			mutate:   func(b *bdomain.Booking) { b.Status = bdomain.StatusConfirmed },
			wantErr:  ErrBookingNotPayable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			booking := pendingBooking(userID)
			if tc.mutate != nil {
				tc.mutate(booking)
			}
			bookings := &fakeBookingsRepo{booking: booking}
			u := NewUsecase(bookings, &fakePaymentsRepo{}, gateway.NewRegistry(&fakeGateway{provider: "phonepe"}), &fakeReconciler{}, fakeTxManager{}, "https://tickets.example.com/return")

			caller := userID
			if tc.userID != nil {
				caller = tc.userID()
			}

			_, err := u.Initiate(context.Background(), tc.provider, booking.Id, caller, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)
			assert.False(t, bookings.initiated)
		})
	}
}

func TestVerifyFeedsReconciliation(t *testing.T) {
	bookingID := uuid.New()
	reconciler := &fakeReconciler{bookingID: bookingID, status: bdomain.StatusConfirmed}
	gw := &fakeGateway{provider: "cashfree", status: pdomain.StatusSuccess}

	u := NewUsecase(&fakeBookingsRepo{}, &fakePaymentsRepo{}, gateway.NewRegistry(gw), reconciler, fakeTxManager{}, "")

	result, err := u.Verify(context.Background(), "cashfree", "ORD-42")
	require.NoError(t, err)

	assert.Equal(t, bookingID, result.BookingId)
	assert.Equal(t, bdomain.StatusConfirmed, result.BookingStatus)
	assert.Equal(t, pdomain.StatusSuccess, result.PaymentStatus)
	assert.Equal(t, []pdomain.Status{pdomain.StatusSuccess}, reconciler.calls)
}

func TestVerifyGatewayError(t *testing.T) {
	gw := &fakeGateway{provider: "cashfree", statusErr: gateway.ErrTimeout}
	reconciler := &fakeReconciler{}

	u := NewUsecase(&fakeBookingsRepo{}, &fakePaymentsRepo{}, gateway.NewRegistry(gw), reconciler, fakeTxManager{}, "")

	_, err := u.Verify(context.Background(), "cashfree", "ORD-42")
	require.ErrorIs(t, err, gateway.ErrTimeout)
	assert.Empty(t, reconciler.calls)
}

func refundFixture(owner uuid.UUID) (*fakeBookingsRepo, *fakePaymentsRepo) {
	booking := pendingBooking(owner)
	bookings := &fakeBookingsRepo{booking: booking}
	payments := &fakePaymentsRepo{transactions: map[string]*pdomain.Transaction{
		"ORD-42": {
			Id:              uuid.New(),
			Provider:        "phonepe",
			BookingId:       booking.Id,
			Amount:          decimal.NewFromInt(2500),
			ProviderOrderId: "ORD-42",
			CreatedAt:       time.Now(),
		},
	}}
	return bookings, payments
}

func TestRefund(t *testing.T) {
	owner := uuid.New()
	bookings, payments := refundFixture(owner)
	u := NewUsecase(bookings, payments, gateway.NewRegistry(&fakeGateway{provider: "phonepe"}), &fakeReconciler{}, fakeTxManager{}, "")

	result, err := u.Refund(context.Background(), "phonepe", "ORD-42", owner, decimal.NewFromInt(1000), "goodwill")
	require.NoError(t, err)

	assert.Equal(t, "REF-9", result.ProviderRefundId)
	assert.Equal(t, pdomain.RefundStatusCompleted, result.Status)
	require.Len(t, payments.refunds, 1)
	assert.True(t, decimal.NewFromInt(1000).Equal(payments.refunds[0].Amount))
}

func TestRefundRequiresOwnership(t *testing.T) {
	owner := uuid.New()
	bookings, payments := refundFixture(owner)
	u := NewUsecase(bookings, payments, gateway.NewRegistry(&fakeGateway{provider: "phonepe"}), &fakeReconciler{}, fakeTxManager{}, "")

	// Knowing the provider order id must not be enough to move money.
	_, err := u.Refund(context.Background(), "phonepe", "ORD-42", uuid.New(), decimal.NewFromInt(1000), "goodwill")
	require.ErrorIs(t, err, bdomain.ErrNotBookingOwner)
	assert.Empty(t, payments.refunds)
}

func TestRefundValidation(t *testing.T) {
	owner := uuid.New()
	bookings, payments := refundFixture(owner)
	u := NewUsecase(bookings, payments, gateway.NewRegistry(&fakeGateway{provider: "phonepe"}, &fakeGateway{provider: "cashfree"}), &fakeReconciler{}, fakeTxManager{}, "")

	_, err := u.Refund(context.Background(), "phonepe", "ORD-42", owner, decimal.NewFromInt(9000), "")
	require.ErrorIs(t, err, gateway.ErrInvalidAmount)

	_, err = u.Refund(context.Background(), "phonepe", "ORD-42", owner, decimal.Zero, "")
	require.ErrorIs(t, err, gateway.ErrInvalidAmount)

	_, err = u.Refund(context.Background(), "cashfree", "ORD-42", owner, decimal.NewFromInt(100), "")
	require.ErrorIs(t, err, gateway.ErrOrderNotFound)

	assert.Empty(t, payments.refunds)
}

func TestRefundCapsAtCapturedAmount(t *testing.T) {
	owner := uuid.New()
	bookings, payments := refundFixture(owner)
	u := NewUsecase(bookings, payments, gateway.NewRegistry(&fakeGateway{provider: "phonepe"}), &fakeReconciler{}, fakeTxManager{}, "")

	_, err := u.Refund(context.Background(), "phonepe", "ORD-42", owner, decimal.NewFromInt(2000), "goodwill")
	require.NoError(t, err)

	// Only 500 remains refundable.
	_, err = u.Refund(context.Background(), "phonepe", "ORD-42", owner, decimal.NewFromInt(1000), "goodwill")
	require.ErrorIs(t, err, ErrRefundExceedsCaptured)
	require.Len(t, payments.refunds, 1)

	_, err = u.Refund(context.Background(), "phonepe", "ORD-42", owner, decimal.NewFromInt(500), "goodwill")
	require.NoError(t, err)
	require.Len(t, payments.refunds, 2)
}
