package events

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/internal/entities"
	"ticketing/internal/infrastructure/clients"
)

func (h *Handler) CancellationEmailHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"cancellation_email_handler",
		func(ctx context.Context, payload *entities.BookingCancelled_v1) error {
			log.FromContext(ctx).Info("Sending cancellation email: ", payload.BookingID)

			return h.emailClient.Send(ctx, clients.EmailMessage{
				IdempotencyKey: payload.Header.IdempotencyKey,
				To:             payload.CustomerEmail,
				Subject:        "Your booking was cancelled",
				Template:       "booking_cancelled",
				Variables: map[string]string{
					"booking_id":    payload.BookingID,
					"reason":        payload.Reason,
					"refund_amount": payload.RefundAmount,
					"currency":      payload.Currency,
				},
			})
		},
	)
}

func (h *Handler) RefundEmailHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"refund_email_handler",
		func(ctx context.Context, payload *entities.BookingRefunded_v1) error {
			log.FromContext(ctx).Info("Sending refund email: ", payload.BookingID)

			return h.emailClient.Send(ctx, clients.EmailMessage{
				IdempotencyKey: payload.Header.IdempotencyKey,
				To:             payload.CustomerEmail,
				Subject:        "Your refund is on its way",
				Template:       "booking_refunded",
				Variables: map[string]string{
					"booking_id": payload.BookingID,
					"refund_id":  payload.RefundID,
					"amount":     payload.Amount,
					"currency":   payload.Currency,
				},
			})
		},
	)
}
