// Package throttle spaces out requests to public services.
package throttle

import (
	"context"
	"time"
)

// Wait pauses for d or until ctx is done, whichever comes first. It returns
// the context error when the wait was cut short. A non-positive d returns
// immediately.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
