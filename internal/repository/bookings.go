package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	domain "ticketing/internal/domain/bookings"
)

type BookingsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewBookingsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *BookingsRepo {
	return &BookingsRepo{db: db, getter: getter}
}

type bookingRow struct {
	Id                 uuid.UUID           `db:"id"`
	UserId             uuid.UUID           `db:"user_id"`
	EventId            uuid.UUID           `db:"event_id"`
	TotalAmount        decimal.Decimal     `db:"total_amount"`
	Currency           string              `db:"currency"`
	Status             string              `db:"status"`
	CustomerName       string              `db:"customer_name"`
	CustomerEmail      string              `db:"customer_email"`
	CustomerPhone      string              `db:"customer_phone"`
	PaymentMethod      string              `db:"payment_method"`
	ProviderOrderId    sql.NullString      `db:"provider_order_id"`
	ProviderStatus     sql.NullString      `db:"provider_status"`
	ProviderResponse   []byte              `db:"provider_response"`
	PaymentInitiatedAt *time.Time          `db:"payment_initiated_at"`
	PaidAt             *time.Time          `db:"paid_at"`
	CancellationReason sql.NullString      `db:"cancellation_reason"`
	CancelledAt        *time.Time          `db:"cancelled_at"`
	RefundAmount       decimal.NullDecimal `db:"refund_amount"`
	RefundDate         *time.Time          `db:"refund_date"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

func (r *bookingRow) toDomain() *domain.Booking {
	booking := &domain.Booking{
		Id:          r.Id,
		UserId:      r.UserId,
		EventId:     r.EventId,
		TotalAmount: r.TotalAmount,
		Currency:    r.Currency,
		Status:      domain.Status(r.Status),
		Customer: domain.Customer{
			Name:  r.CustomerName,
			Email: r.CustomerEmail,
			Phone: r.CustomerPhone,
		},
		Payment: domain.PaymentInfo{
			Method:          r.PaymentMethod,
			ProviderOrderId: r.ProviderOrderId.String,
			ProviderStatus:  r.ProviderStatus.String,
			RawResponse:     r.ProviderResponse,
			InitiatedAt:     r.PaymentInitiatedAt,
			PaidAt:          r.PaidAt,
		},
		CancellationReason: r.CancellationReason.String,
		CancelledAt:        r.CancelledAt,
		RefundDate:         r.RefundDate,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}

	if r.RefundAmount.Valid {
		amount := r.RefundAmount.Decimal
		booking.RefundAmount = &amount
	}

	return booking
}

const bookingColumns = `
	id, user_id, event_id, total_amount, currency, status,
	customer_name, customer_email, customer_phone,
	payment_method, provider_order_id, provider_status, provider_response,
	payment_initiated_at, paid_at,
	cancellation_reason, cancelled_at, refund_amount, refund_date,
	created_at, updated_at`

func (r *BookingsRepo) Create(ctx context.Context, booking domain.Booking) (uuid.UUID, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var id uuid.UUID
	err := tr.QueryRowxContext(ctx, `
		INSERT INTO bookings (
			user_id, event_id, total_amount, currency, status,
			customer_name, customer_email, customer_phone, payment_method
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		booking.UserId,
		booking.EventId,
		booking.TotalAmount,
		booking.Currency,
		string(domain.StatusPending),
		booking.Customer.Name,
		booking.Customer.Email,
		booking.Customer.Phone,
		booking.Payment.Method,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return id, nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var row bookingRow
	err := tr.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return row.toDomain(), nil
}

func (r *BookingsRepo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Booking, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var row bookingRow
	err := tr.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE provider_order_id = $1`, providerOrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by provider order id: %w", err)
	}

	return row.toDomain(), nil
}

// SetPaymentInitiated records the provider-side order created for the
// booking. The provider call itself happens outside any transaction, so
// this is a plain update on the committed pending booking.
func (r *BookingsRepo) SetPaymentInitiated(ctx context.Context, id uuid.UUID, method, providerOrderID, providerStatus string, rawResponse []byte) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		UPDATE bookings
		SET payment_method = $2,
		    provider_order_id = $3,
		    provider_status = $4,
		    provider_response = $5,
		    payment_initiated_at = now(),
		    updated_at = now()
		WHERE id = $1`,
		id, method, providerOrderID, providerStatus, rawResponse)
	if err != nil {
		return fmt.Errorf("failed to record payment initiation: %w", err)
	}

	return nil
}

// ConfirmIfPending flips the booking to confirmed only when it is still
// pending. It reports whether this call won the transition; losing is not
// an error — it is how concurrent reconcile calls collapse to one winner.
func (r *BookingsRepo) ConfirmIfPending(ctx context.Context, id uuid.UUID, providerStatus string, paidAt time.Time) (bool, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	res, err := tr.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2,
		    provider_status = $3,
		    paid_at = $4,
		    updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, string(domain.StatusConfirmed), providerStatus, paidAt, string(domain.StatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// MarkCancelled transitions a pending or confirmed booking to cancelled.
func (r *BookingsRepo) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, refundAmount decimal.Decimal) (bool, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	res, err := tr.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2,
		    cancellation_reason = $3,
		    cancelled_at = now(),
		    refund_amount = $4,
		    updated_at = now()
		WHERE id = $1 AND status IN ($5, $6)`,
		id, string(domain.StatusCancelled), reason, refundAmount,
		string(domain.StatusPending), string(domain.StatusConfirmed))
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// MarkRefunded records a completed refund against a cancelled booking.
func (r *BookingsRepo) MarkRefunded(ctx context.Context, id uuid.UUID, refundDate time.Time) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		UPDATE bookings
		SET status = $2,
		    refund_date = $3,
		    updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, string(domain.StatusRefunded), refundDate, string(domain.StatusCancelled))
	if err != nil {
		return fmt.Errorf("failed to mark booking refunded: %w", err)
	}

	return nil
}
