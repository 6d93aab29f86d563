package s3store

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff defines bounded exponential backoff for transient remote failures.
type Backoff struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialDelay is the delay after the first failed attempt.
	InitialDelay time.Duration
	// MaxDelay caps the growth of the delay.
	MaxDelay time.Duration
	// Multiplier is the exponential growth factor between attempts.
	Multiplier float64
	// Jitter randomizes each delay by ±10% to avoid thundering herds.
	Jitter bool
}

// DefaultBackoff returns the retry policy used for listing and fetching.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts:  4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Delay returns the wait before retry number attempt (1-based: the delay
// after the attempt-th failure).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := time.Duration(float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1)))
	if d > b.MaxDelay || d < 0 {
		d = b.MaxDelay
	}

	if b.Jitter && d > 0 {
		// ±10%
		jitter := time.Duration((rand.Float64() - 0.5) * 0.2 * float64(d))
		d += jitter
	}

	return d
}

// Sleep waits for the attempt's delay or until the context is cancelled.
func (b Backoff) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
