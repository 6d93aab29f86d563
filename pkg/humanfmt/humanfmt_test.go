package humanfmt

import (
	"testing"
	"time"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{5 * MiB, "5.00 MiB"},
		{int64(2.5 * GiB), "2.50 GiB"},
		{3 * TiB, "3.00 TiB"},
		{-1, "-1 B"},
	}
	for _, tt := range tests {
		if got := Bytes(tt.in); got != tt.want {
			t.Errorf("Bytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{42 * time.Microsecond, "42.0µs"},
		{3500 * time.Microsecond, "3.5ms"},
		{2500 * time.Millisecond, "2.50s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{135 * time.Minute, "2h15m"},
		{2 * time.Hour, "2h"},
	}
	for _, tt := range tests {
		if got := Duration(tt.in); got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestThroughput(t *testing.T) {
	if got := Throughput(10*MiB, time.Second); got != "10.00 MiB/s" {
		t.Errorf("Throughput = %q, want 10.00 MiB/s", got)
	}
	if got := Throughput(100, 0); got != "∞" {
		t.Errorf("Throughput with zero duration = %q, want ∞", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(87.54); got != "87.5%" {
		t.Errorf("Percent = %q, want 87.5%%", got)
	}
	if got := Percent(100); got != "100.0%" {
		t.Errorf("Percent = %q, want 100.0%%", got)
	}
}
