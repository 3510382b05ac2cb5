package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Cooldown is a randomized pause drawn uniformly from [Min, Max]
type Cooldown struct {
	Min time.Duration
	Max time.Duration
}

// Next returns the next pause length
func (c Cooldown) Next() time.Duration {
	if c.Max <= c.Min {
		return c.Min
	}
	return c.Min + time.Duration(rand.Int63n(int64(c.Max-c.Min)+1))
}

// Pause sleeps for Next() or until ctx is done
func (c Cooldown) Pause(ctx context.Context) error {
	return Sleep(ctx, c.Next())
}

// Sleep waits for the specified duration or until context is cancelled
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
