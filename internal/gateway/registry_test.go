package gateway_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/gateway"
	"ticketing/internal/gateway/cashfree"
	"ticketing/internal/gateway/phonepe"
)

func TestRegistry(t *testing.T) {
	pp, err := phonepe.New(phonepe.Config{BaseURL: "https://api.phonepe", MerchantID: "M", SaltKey: "s", SaltIndex: 1, Timeout: time.Second})
	require.NoError(t, err)
	cf, err := cashfree.New(cashfree.Config{BaseURL: "https://api.cashfree", ClientID: "c", ClientSecret: "s", Timeout: time.Second})
	require.NoError(t, err)

	registry := gateway.NewRegistry(pp, cf)

	gw, err := registry.Get("phonepe")
	require.NoError(t, err)
	assert.Equal(t, "phonepe", gw.Provider())

	_, err = registry.Get("stripe")
	require.ErrorIs(t, err, gateway.ErrUnknownProvider)

	assert.Equal(t, []string{"cashfree", "phonepe"}, registry.Providers())
}
