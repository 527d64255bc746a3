package events

import (
	"context"

	"ticketing/internal/infrastructure/clients"
)

type EmailSender interface {
	Send(ctx context.Context, msg clients.EmailMessage) error
}

type PushSender interface {
	Send(ctx context.Context, note clients.PushNotification) error
}

// Handler owns the side effects triggered by booking lifecycle events.
// Every handler is idempotent on the event's idempotency key, so redis
// redeliveries are safe.
type Handler struct {
	emailClient EmailSender
	pushClient  PushSender
}

func NewHandler(
	emailClient EmailSender,
	pushClient PushSender,
) *Handler {
	return &Handler{
		emailClient: emailClient,
		pushClient:  pushClient,
	}
}
