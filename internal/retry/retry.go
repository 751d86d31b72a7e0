// Package retry provides a small retry-with-cooldown helper used by
// every external-call site in the pipeline.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how many times an operation is attempted and how
// long to wait between attempts.
type Policy struct {
	Attempts int
	Cooldown time.Duration
}

// DefaultPolicy matches the config defaults.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Cooldown: 500 * time.Millisecond}
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The cooldown sleep is cancellable.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if i < attempts-1 && p.Cooldown > 0 {
			timer := time.NewTimer(p.Cooldown)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
