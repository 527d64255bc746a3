package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domain "ticketing/internal/domain/payments"
)

var ErrTransactionNotFound = errors.New("payment transaction not found")

// PaymentsRepo persists the provider-side audit trail: one transaction
// row per initiated attempt, one refund row per initiated refund. Rows
// are appended and updated, never deleted.
type PaymentsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewPaymentsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *PaymentsRepo {
	return &PaymentsRepo{db: db, getter: getter}
}

func (r *PaymentsRepo) CreateTransaction(ctx context.Context, tx domain.Transaction) (uuid.UUID, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var id uuid.UUID
	err := tr.QueryRowxContext(ctx, `
		INSERT INTO payment_transactions (
			provider, booking_id, amount, currency, provider_order_id, status, raw_request, raw_response
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		tx.Provider,
		tx.BookingId,
		tx.Amount,
		tx.Currency,
		tx.ProviderOrderId,
		string(tx.Status),
		tx.RawRequest,
		tx.RawResponse,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create payment transaction: %w", err)
	}

	return id, nil
}

func (r *PaymentsRepo) UpdateTransactionStatus(ctx context.Context, providerOrderID string, status domain.Status, rawResponse []byte) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $2,
		    raw_response = COALESCE($3, raw_response),
		    updated_at = now()
		WHERE provider_order_id = $1`,
		providerOrderID, string(status), rawResponse)
	if err != nil {
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}

	return nil
}

func (r *PaymentsRepo) GetTransactionByOrderID(ctx context.Context, providerOrderID string) (*domain.Transaction, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var tx domain.Transaction
	var status string
	err := tr.QueryRowxContext(ctx, `
		SELECT id, provider, booking_id, amount, currency, provider_order_id, status,
		       raw_request, raw_response, created_at, updated_at
		FROM payment_transactions
		WHERE provider_order_id = $1`, providerOrderID,
	).Scan(&tx.Id, &tx.Provider, &tx.BookingId, &tx.Amount, &tx.Currency,
		&tx.ProviderOrderId, &status, &tx.RawRequest, &tx.RawResponse,
		&tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	tx.Status = domain.Status(status)
	return &tx, nil
}

func (r *PaymentsRepo) CreateRefund(ctx context.Context, refund domain.Refund) (uuid.UUID, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var id uuid.UUID
	err := tr.QueryRowxContext(ctx, `
		INSERT INTO payment_refunds (
			transaction_id, booking_id, provider_refund_id, amount, status, raw_response
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		refund.TransactionId,
		refund.BookingId,
		refund.ProviderRefundId,
		refund.Amount,
		string(refund.Status),
		refund.RawResponse,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create payment refund: %w", err)
	}

	return id, nil
}

func (r *PaymentsRepo) GetRefundsForBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Refund, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	rows, err := tr.QueryxContext(ctx, `
		SELECT id, transaction_id, booking_id, provider_refund_id, amount, status, raw_response, created_at
		FROM payment_refunds
		WHERE booking_id = $1
		ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		var refund domain.Refund
		var status string
		err = rows.Scan(&refund.Id, &refund.TransactionId, &refund.BookingId,
			&refund.ProviderRefundId, &refund.Amount, &status, &refund.RawResponse, &refund.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refund.Status = domain.RefundStatus(status)
		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}
