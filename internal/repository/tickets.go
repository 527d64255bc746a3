package repository

import (
	"context"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	domain "ticketing/internal/domain/tickets"
)

type TicketsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewTicketsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *TicketsRepo {
	return &TicketsRepo{db: db, getter: getter}
}

type ticketRow struct {
	Id           uuid.UUID       `db:"id"`
	BookingId    uuid.UUID       `db:"booking_id"`
	EventId      uuid.UUID       `db:"event_id"`
	TicketTypeId uuid.UUID       `db:"ticket_type_id"`
	OwnerId      uuid.UUID       `db:"owner_id"`
	Price        decimal.Decimal `db:"price"`
	Currency     string          `db:"currency"`
	Status       string          `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r *TicketsRepo) CreateBatch(ctx context.Context, batch []domain.Ticket) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	for _, ticket := range batch {
		_, err := tr.ExecContext(ctx, `
			INSERT INTO tickets (
				booking_id, event_id, ticket_type_id, owner_id, price, currency, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			ticket.BookingId,
			ticket.EventId,
			ticket.TicketTypeId,
			ticket.OwnerId,
			ticket.Price,
			ticket.Currency,
			string(domain.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
	}

	return nil
}

func (r *TicketsRepo) GetForBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Ticket, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var rows []ticketRow
	err := tr.SelectContext(ctx, &rows, `
		SELECT id, booking_id, event_id, ticket_type_id, owner_id, price, currency, status, created_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for booking: %w", err)
	}

	result := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.Ticket{
			Id:           row.Id,
			BookingId:    row.BookingId,
			EventId:      row.EventId,
			TicketTypeId: row.TicketTypeId,
			OwnerId:      row.OwnerId,
			Price:        row.Price,
			Currency:     row.Currency,
			Status:       domain.Status(row.Status),
			CreatedAt:    row.CreatedAt,
		})
	}
	return result, nil
}

// ActivateForBooking advances all pending tickets of a confirmed booking.
func (r *TicketsRepo) ActivateForBooking(ctx context.Context, bookingID uuid.UUID) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2
		WHERE booking_id = $1 AND status = $3`,
		bookingID, string(domain.StatusActive), string(domain.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to activate tickets: %w", err)
	}

	return nil
}

// CancelForBooking cancels every live ticket of the booking and returns
// the released counts grouped by ticket type, for the inventory reverse
// operation.
func (r *TicketsRepo) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (map[uuid.UUID]int, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	rows, err := tr.QueryxContext(ctx, `
		UPDATE tickets
		SET status = $2
		WHERE booking_id = $1 AND status IN ($3, $4)
		RETURNING ticket_type_id`,
		bookingID, string(domain.StatusCancelled),
		string(domain.StatusPending), string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel tickets: %w", err)
	}
	defer rows.Close()

	released := make(map[uuid.UUID]int)
	for rows.Next() {
		var ticketTypeID uuid.UUID
		if err := rows.Scan(&ticketTypeID); err != nil {
			return nil, fmt.Errorf("failed to scan cancelled ticket: %w", err)
		}
		released[ticketTypeID]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cancelled tickets: %w", err)
	}

	return released, nil
}

// MarkRefundedForBooking is called after a provider refund completes.
func (r *TicketsRepo) MarkRefundedForBooking(ctx context.Context, bookingID uuid.UUID) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2
		WHERE booking_id = $1 AND status = $3`,
		bookingID, string(domain.StatusRefunded), string(domain.StatusCancelled))
	if err != nil {
		return fmt.Errorf("failed to mark tickets refunded: %w", err)
	}

	return nil
}
