package s3store

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDelayGrowth(t *testing.T) {
	b := Backoff{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	b := Backoff{
		MaxAttempts:  10,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
	if got := b.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want capped at 5s", got)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := Backoff{
		MaxAttempts:  4,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		Jitter:       true,
	}
	for range 100 {
		d := b.Delay(1)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("jittered Delay(1) = %v, want within ±10%% of 1s", d)
		}
	}
}

func TestBackoffSleepCancelled(t *testing.T) {
	b := Backoff{
		MaxAttempts:  2,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := b.Sleep(ctx, 1)
	if err == nil {
		t.Fatal("expected error from cancelled sleep")
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancellation")
	}
}
