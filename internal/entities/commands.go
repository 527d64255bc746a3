package entities

// ReconcilePayment is sent by the webhook handler after the provider has
// been acknowledged. The command handler funnels it into the
// reconciliation engine; duplicate webhook deliveries produce duplicate
// commands that reconcile to a no-op.
type ReconcilePayment struct {
	Header EventHeader `json:"header"`

	Provider        string `json:"provider"`
	ProviderOrderID string `json:"provider_order_id"`
	Outcome         string `json:"outcome"`
}
