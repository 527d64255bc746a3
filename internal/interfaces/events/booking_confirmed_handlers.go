package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/internal/entities"
	"ticketing/internal/infrastructure/clients"
)

func (h *Handler) ConfirmationEmailHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"confirmation_email_handler",
		func(ctx context.Context, payload *entities.BookingConfirmed_v1) error {
			log.FromContext(ctx).Info("Sending booking confirmation email: ", payload.BookingID)

			return h.emailClient.Send(ctx, clients.EmailMessage{
				IdempotencyKey: payload.Header.IdempotencyKey,
				To:             payload.CustomerEmail,
				Subject:        fmt.Sprintf("Your tickets for %s are confirmed", payload.EventName),
				Template:       "booking_confirmed",
				Variables: map[string]string{
					"booking_id":   payload.BookingID,
					"event_name":   payload.EventName,
					"ticket_count": fmt.Sprint(payload.TicketCount),
					"total_amount": payload.TotalAmount,
					"currency":     payload.Currency,
				},
			})
		},
	)
}

func (h *Handler) ConfirmationPushHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"confirmation_push_handler",
		func(ctx context.Context, payload *entities.BookingConfirmed_v1) error {
			return h.pushClient.Send(ctx, clients.PushNotification{
				IdempotencyKey: payload.Header.IdempotencyKey,
				Recipient:      payload.CustomerEmail,
				Title:          "Booking confirmed",
				Body:           fmt.Sprintf("%d ticket(s) for %s", payload.TicketCount, payload.EventName),
			})
		},
	)
}
