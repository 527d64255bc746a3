package bookings

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundTier string

const (
	TierNone    RefundTier = "none"
	TierPartial RefundTier = "partial"
	TierFull    RefundTier = "full"
)

// RefundPolicy maps the time remaining before an event to the refunded
// fraction of the booking total. Lower bounds are inclusive:
//
//	< 24h  — cancellation is rejected
//	24-48h — cancellation allowed, no refund
//	48-72h — half refund
//	>= 72h — full refund
type RefundPolicy struct{}

// Tier returns the refund fraction and tier label for a cancellation
// happening at now for an event starting at eventStart. It returns
// ErrCancellationWindowClosed when the event is less than 24 hours away.
func (RefundPolicy) Tier(eventStart, now time.Time) (decimal.Decimal, RefundTier, error) {
	hoursUntilEvent := eventStart.Sub(now).Hours()

	switch {
	case hoursUntilEvent < 24:
		return decimal.Zero, "", ErrCancellationWindowClosed
	case hoursUntilEvent < 48:
		return decimal.Zero, TierNone, nil
	case hoursUntilEvent < 72:
		return decimal.NewFromFloat(0.5), TierPartial, nil
	default:
		return decimal.NewFromInt(1), TierFull, nil
	}
}

// RefundAmount computes the amount refunded for the given booking total.
func (p RefundPolicy) RefundAmount(total decimal.Decimal, eventStart, now time.Time) (decimal.Decimal, RefundTier, error) {
	fraction, tier, err := p.Tier(eventStart, now)
	if err != nil {
		return decimal.Zero, "", err
	}

	return total.Mul(fraction).Round(2), tier, nil
}
