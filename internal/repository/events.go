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

	domain "ticketing/internal/domain/events"
)

type EventsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewEventsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *EventsRepo {
	return &EventsRepo{db: db, getter: getter}
}

type ticketTypeRow struct {
	Id            uuid.UUID       `db:"id"`
	EventId       uuid.UUID       `db:"event_id"`
	Name          string          `db:"name"`
	Price         decimal.Decimal `db:"price"`
	Currency      string          `db:"currency"`
	Quantity      int             `db:"quantity"`
	QuantitySold  int             `db:"quantity_sold"`
	MaxPerUser    int             `db:"max_per_user"`
	StartSaleTime time.Time       `db:"start_sale_time"`
	EndSaleTime   *time.Time      `db:"end_sale_time"`
	IsActive      bool            `db:"is_active"`
}

func (r *ticketTypeRow) toDomain() domain.TicketType {
	return domain.TicketType{
		Id:            r.Id,
		EventId:       r.EventId,
		Name:          r.Name,
		Price:         r.Price,
		Currency:      r.Currency,
		Quantity:      r.Quantity,
		QuantitySold:  r.QuantitySold,
		MaxPerUser:    r.MaxPerUser,
		StartSaleTime: r.StartSaleTime,
		EndSaleTime:   r.EndSaleTime,
		IsActive:      r.IsActive,
	}
}

func (r *EventsRepo) CreateEvent(ctx context.Context, event domain.Event, ticketTypes []domain.TicketType) (uuid.UUID, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		INSERT INTO events (id, name, venue, start_time, is_published)
		VALUES ($1, $2, $3, $4, $5)`,
		event.Id, event.Name, event.Venue, event.StartTime, event.IsPublished,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create event: %w", err)
	}

	for _, tt := range ticketTypes {
		_, err = tr.ExecContext(ctx, `
			INSERT INTO ticket_types (
				id, event_id, name, price, currency, quantity, max_per_user,
				start_sale_time, end_sale_time, is_active
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			tt.Id, event.Id, tt.Name, tt.Price, tt.Currency, tt.Quantity, tt.MaxPerUser,
			tt.StartSaleTime, tt.EndSaleTime, tt.IsActive,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to create ticket type %q: %w", tt.Name, err)
		}
	}

	return event.Id, nil
}

func (r *EventsRepo) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var event domain.Event
	err := tr.QueryRowxContext(ctx, `
		SELECT id, name, venue, start_time, is_published
		FROM events
		WHERE id = $1`, id,
	).Scan(&event.Id, &event.Name, &event.Venue, &event.StartTime, &event.IsPublished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (r *EventsRepo) GetTicketType(ctx context.Context, id uuid.UUID) (*domain.TicketType, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var row ticketTypeRow
	err := tr.GetContext(ctx, &row, `
		SELECT id, event_id, name, price, currency, quantity, quantity_sold,
		       max_per_user, start_sale_time, end_sale_time, is_active
		FROM ticket_types
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	tt := row.toDomain()
	return &tt, nil
}

func (r *EventsRepo) GetTicketTypesForEvent(ctx context.Context, eventID uuid.UUID) ([]domain.TicketType, error) {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	var rows []ticketTypeRow
	err := tr.SelectContext(ctx, &rows, `
		SELECT id, event_id, name, price, currency, quantity, quantity_sold,
		       max_per_user, start_sale_time, end_sale_time, is_active
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY price`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}

	ticketTypes := make([]domain.TicketType, 0, len(rows))
	for i := range rows {
		ticketTypes = append(ticketTypes, rows[i].toDomain())
	}
	return ticketTypes, nil
}

// ReserveTicketType increments quantity_sold by quantity only if the
// result stays within capacity. The guard runs inside the UPDATE itself,
// so two concurrent reservations for the last unit cannot both succeed.
func (r *EventsRepo) ReserveTicketType(ctx context.Context, id uuid.UUID, quantity int) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	res, err := tr.ExecContext(ctx, `
		UPDATE ticket_types
		SET quantity_sold = quantity_sold + $2
		WHERE id = $1 AND quantity_sold + $2 <= quantity`,
		id, quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve ticket type: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrInsufficientInventory
	}

	return nil
}

// ReleaseTicketType is the reverse operation used by cancellation. The
// decrement is floored at zero so a stray release cannot break the
// capacity invariant.
func (r *EventsRepo) ReleaseTicketType(ctx context.Context, id uuid.UUID, quantity int) error {
	tr := r.getter.DefaultTrOrDB(ctx, r.db)

	_, err := tr.ExecContext(ctx, `
		UPDATE ticket_types
		SET quantity_sold = GREATEST(quantity_sold - $2, 0)
		WHERE id = $1`,
		id, quantity)
	if err != nil {
		return fmt.Errorf("failed to release ticket type: %w", err)
	}

	return nil
}
