package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// WrapTransportError normalizes network failures from provider calls.
// Timeouts map onto ErrTimeout so callers can retry them; everything else
// is passed through wrapped.
func WrapTransportError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", provider, ErrTimeout)
	}

	return fmt.Errorf("%s request failed: %w", provider, err)
}
