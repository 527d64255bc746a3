package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
)

// TxEventBus publishes events through the outbox using the transaction
// bound to the context. Publishing outside a transaction is a programmer
// error and fails loudly.
type TxEventBus struct {
	getter *trmsqlx.CtxGetter
	logger watermill.LoggerAdapter
}

func NewTxEventBus(getter *trmsqlx.CtxGetter, logger watermill.LoggerAdapter) *TxEventBus {
	return &TxEventBus{getter: getter, logger: logger}
}

func (b *TxEventBus) Publish(ctx context.Context, event any) error {
	tr := b.getter.DefaultTrOrDB(ctx, nil)
	if tr == nil {
		return fmt.Errorf("failed to get transaction from context")
	}

	publisher, err := NewPublisher(tr, b.logger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	eb, err := cqrs.NewEventBusWithConfig(
		publisher,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return "events." + params.EventName, nil
			},
			Marshaler: cqrs.JSONMarshaler{
				GenerateName: cqrs.StructName,
			},
			Logger: b.logger,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	return eb.Publish(ctx, event)
}
