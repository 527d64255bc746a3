package gateway

import (
	"fmt"
	"sort"
)

// Registry holds the configured provider adapters, keyed by the method
// discriminator stored on bookings.
type Registry struct {
	gateways map[string]PaymentGateway
}

func NewRegistry(gateways ...PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]PaymentGateway, len(gateways))}
	for _, gw := range gateways {
		r.gateways[gw.Provider()] = gw
	}
	return r
}

func (r *Registry) Get(provider string) (PaymentGateway, error) {
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return gw, nil
}

func (r *Registry) Providers() []string {
	providers := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}
