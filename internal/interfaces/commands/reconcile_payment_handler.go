package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	bdomain "ticketing/internal/domain/bookings"
	pdomain "ticketing/internal/domain/payments"
	"ticketing/internal/entities"
)

type Reconciler interface {
	ReconcileOrder(ctx context.Context, providerOrderID string, outcome pdomain.Status, rawResponse []byte) (uuid.UUID, bdomain.Status, error)
}

type Handler struct {
	reconciler Reconciler
}

func NewHandler(reconciler Reconciler) *Handler {
	return &Handler{reconciler: reconciler}
}

// ReconcilePaymentHandler drives webhook-reported outcomes into the
// reconciliation engine. The webhook endpoint has already answered the
// provider by the time this runs; a crash here only delays convergence
// until the redelivery.
func (h *Handler) ReconcilePaymentHandler() cqrs.CommandHandler {
	return cqrs.NewCommandHandler(
		"reconcile_payment",
		func(ctx context.Context, command *entities.ReconcilePayment) error {
			log.FromContext(ctx).
				WithField("provider", command.Provider).
				WithField("provider_order_id", command.ProviderOrderID).
				Info("Reconciling payment outcome")

			_, _, err := h.reconciler.ReconcileOrder(ctx, command.ProviderOrderID, pdomain.Status(command.Outcome), nil)
			if errors.Is(err, bdomain.ErrBookingNotFound) {
				// No booking owns this order; retrying will not change that.
				log.FromContext(ctx).
					WithField("provider_order_id", command.ProviderOrderID).
					Warn("Webhook for unknown order, dropping")
				return nil
			}
			if err != nil {
				return fmt.Errorf("error reconciling payment for order %s: %w", command.ProviderOrderID, err)
			}

			return nil
		},
	)
}
