package database

import (
	"context"
	"fmt"
	"time"
)

// Pinger is satisfied by every client in this package.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady pings until success, doubling the wait between attempts.
func WaitReady(ctx context.Context, p Pinger, attempts int, initial time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	wait := initial
	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = p.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("not ready after %d attempts: %w", attempts, lastErr)
}
