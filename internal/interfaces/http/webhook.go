package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"ticketing/internal/entities"
)

type webhookAck struct {
	Received bool `json:"received"`
}

// WebhookHandler receives provider callbacks. Providers retry on any
// non-2xx, so every outcome except an unknown provider is acknowledged
// with 200; payloads failing signature verification are dropped before
// anything else looks at them, with a log trail instead of an error.
// The actual state change happens asynchronously through the
// ReconcilePayment command.
func (s *Server) WebhookHandler(c echo.Context) error {
	ctx := c.Request().Context()
	provider := c.Param("provider")

	gw, err := s.gateways.Get(provider)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown provider")
	}

	ack := func() error {
		return c.JSON(http.StatusOK, webhookAck{Received: true})
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.FromContext(ctx).
			WithField("provider", provider).
			WithField("error", err).
			Warn("Cannot read webhook body")
		return ack()
	}

	headers := make(map[string]string, len(c.Request().Header))
	for name, values := range c.Request().Header {
		if len(values) == 0 {
			continue
		}
		headers[name] = values[0]
		headers[strings.ToLower(name)] = values[0]
	}

	if !gw.VerifyInboundSignature(payload, headers) {
		log.FromContext(ctx).
			WithField("provider", provider).
			Warn("Webhook signature verification failed")
		return ack()
	}

	orderID, status, err := gw.WebhookOutcome(payload)
	if err != nil {
		log.FromContext(ctx).
			WithField("provider", provider).
			WithField("error", err).
			Warn("Cannot extract webhook outcome")
		return ack()
	}

	err = s.commandBus.Send(ctx, &entities.ReconcilePayment{
		Header:          entities.NewEventHeaderWithIdempotencyKey(orderID + ":" + string(status)),
		Provider:        provider,
		ProviderOrderID: orderID,
		Outcome:         string(status),
	})
	if err != nil {
		log.FromContext(ctx).
			WithField("provider", provider).
			WithField("provider_order_id", orderID).
			WithField("error", err).
			Error("Failed to enqueue payment reconciliation")
	}

	return ack()
}
