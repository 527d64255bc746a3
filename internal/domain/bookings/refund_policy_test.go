package bookings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundPolicy_Tier(t *testing.T) {
	eventStart := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		hoursBefore  float64
		wantFraction string
		wantTier     RefundTier
		wantErr      error
	}{
		{name: "80h before event", hoursBefore: 80, wantFraction: "1", wantTier: TierFull},
		{name: "exactly 72h", hoursBefore: 72, wantFraction: "1", wantTier: TierFull},
		{name: "60h before event", hoursBefore: 60, wantFraction: "0.5", wantTier: TierPartial},
		{name: "exactly 48h", hoursBefore: 48, wantFraction: "0.5", wantTier: TierPartial},
		{name: "30h before event", hoursBefore: 30, wantFraction: "0", wantTier: TierNone},
		{name: "exactly 24h", hoursBefore: 24, wantFraction: "0", wantTier: TierNone},
		{name: "10h before event", hoursBefore: 10, wantErr: ErrCancellationWindowClosed},
		{name: "event already started", hoursBefore: -2, wantErr: ErrCancellationWindowClosed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			now := eventStart.Add(-time.Duration(tc.hoursBefore * float64(time.Hour)))

			fraction, tier, err := RefundPolicy{}.Tier(eventStart, now)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantTier, tier)
			assert.True(t, fraction.Equal(decimal.RequireFromString(tc.wantFraction)),
				"fraction %s != %s", fraction, tc.wantFraction)
		})
	}
}

func TestRefundPolicy_RefundAmount(t *testing.T) {
	eventStart := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("2499.00")

	amount, tier, err := RefundPolicy{}.RefundAmount(total, eventStart, eventStart.Add(-60*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TierPartial, tier)
	assert.True(t, amount.Equal(decimal.RequireFromString("1249.50")), "got %s", amount)

	amount, tier, err = RefundPolicy{}.RefundAmount(total, eventStart, eventStart.Add(-100*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TierFull, tier)
	assert.True(t, amount.Equal(total))

	_, _, err = RefundPolicy{}.RefundAmount(total, eventStart, eventStart.Add(-5*time.Hour))
	require.ErrorIs(t, err, ErrCancellationWindowClosed)
}
