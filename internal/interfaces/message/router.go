package message

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"ticketing/internal/interfaces/commands"
	"ticketing/internal/interfaces/events"
)

func NewRouter(
	watermillLogger watermill.LoggerAdapter,

	eventHandler *events.Handler,
	commandsHandler *commands.Handler,

	eventProcessorConfig cqrs.EventProcessorConfig,
	commandProcessorConfig cqrs.CommandProcessorConfig,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	initMiddlewares(watermillLogger, router)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, err
	}

	err = eventProcessor.AddHandlers(
		// BookingConfirmed handlers
		eventHandler.ConfirmationEmailHandler(),
		eventHandler.ConfirmationPushHandler(),

		// BookingCancelled / BookingRefunded handlers
		eventHandler.CancellationEmailHandler(),
		eventHandler.RefundEmailHandler(),
	)
	if err != nil {
		return nil, err
	}

	commandsProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commandProcessorConfig)
	if err != nil {
		return nil, err
	}
	err = commandsProcessor.AddHandlers(
		commandsHandler.ReconcilePaymentHandler(),
	)
	if err != nil {
		return nil, err
	}

	return router, nil
}

func initMiddlewares(watermillLogger watermill.LoggerAdapter, router *message.Router) {
	router.AddMiddleware(events.TracingMiddleware)
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(events.CorrelationIDMiddleware)
	router.AddMiddleware(events.LoggingMiddleware)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	// skip marshalling errors before retrying
	router.AddMiddleware(events.SkipMarshallingErrorsMiddleware)
	router.AddMiddleware(events.MetricsMiddleware)
}
