package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func InitializeDBSchema(db *sqlx.DB) error {
	statements := []struct {
		name  string
		query string
	}{
		{"events", `
CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name VARCHAR(255) NOT NULL,
	venue VARCHAR(255) NOT NULL,
	start_time TIMESTAMP WITH TIME ZONE NOT NULL,
	is_published BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`},
		{"ticket_types", `
CREATE TABLE IF NOT EXISTS ticket_types (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	event_id UUID NOT NULL REFERENCES events (id),
	name VARCHAR(255) NOT NULL,
	price NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	quantity INTEGER NOT NULL,
	quantity_sold INTEGER NOT NULL DEFAULT 0,
	max_per_user INTEGER NOT NULL DEFAULT 10,
	start_sale_time TIMESTAMP WITH TIME ZONE NOT NULL,
	end_sale_time TIMESTAMP WITH TIME ZONE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	CONSTRAINT quantity_sold_within_capacity CHECK (quantity_sold >= 0 AND quantity_sold <= quantity)
);`},
		{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL,
	event_id UUID NOT NULL REFERENCES events (id),
	total_amount NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	customer_name VARCHAR(255) NOT NULL DEFAULT '',
	customer_email VARCHAR(255) NOT NULL,
	customer_phone VARCHAR(32) NOT NULL DEFAULT '',
	payment_method VARCHAR(32) NOT NULL DEFAULT '',
	provider_order_id VARCHAR(128) UNIQUE,
	provider_status VARCHAR(64),
	provider_response JSONB,
	payment_initiated_at TIMESTAMP WITH TIME ZONE,
	paid_at TIMESTAMP WITH TIME ZONE,
	cancellation_reason TEXT,
	cancelled_at TIMESTAMP WITH TIME ZONE,
	refund_amount NUMERIC(10, 2),
	refund_date TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`},
		{"tickets", `
CREATE TABLE IF NOT EXISTS tickets (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	booking_id UUID NOT NULL REFERENCES bookings (id),
	event_id UUID NOT NULL REFERENCES events (id),
	ticket_type_id UUID NOT NULL REFERENCES ticket_types (id),
	owner_id UUID NOT NULL,
	price NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`},
		{"payment_transactions", `
CREATE TABLE IF NOT EXISTS payment_transactions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	provider VARCHAR(32) NOT NULL,
	booking_id UUID NOT NULL REFERENCES bookings (id),
	amount NUMERIC(10, 2) NOT NULL,
	currency CHAR(3) NOT NULL,
	provider_order_id VARCHAR(128) NOT NULL,
	status VARCHAR(32) NOT NULL,
	raw_request JSONB,
	raw_response JSONB,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`},
		{"payment_refunds", `
CREATE TABLE IF NOT EXISTS payment_refunds (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	transaction_id UUID NOT NULL REFERENCES payment_transactions (id),
	booking_id UUID NOT NULL REFERENCES bookings (id),
	provider_refund_id VARCHAR(128),
	amount NUMERIC(10, 2) NOT NULL,
	status VARCHAR(16) NOT NULL,
	raw_response JSONB,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`},
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(context.Background(), stmt.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	return nil
}
