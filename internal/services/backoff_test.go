package services

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextRetryAtStaysWithinCap(t *testing.T) {
	cfg := BackoffConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	rng := rand.New(rand.NewSource(1))
	now := baseTime

	tests := []struct {
		attempt int
		max     time.Duration
	}{
		{attempt: 0, max: 100 * time.Millisecond},
		{attempt: 1, max: 100 * time.Millisecond},
		{attempt: 2, max: 200 * time.Millisecond},
		{attempt: 4, max: 800 * time.Millisecond},
		{attempt: 5, max: time.Second},
		{attempt: 200, max: time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			next := NextRetryAt(now, tt.attempt, cfg, rng)
			delay := next.Sub(now)
			if delay < 0 || delay > tt.max {
				t.Fatalf("attempt %d: delay %s outside [0, %s]", tt.attempt, delay, tt.max)
			}
		}
	}
}

func TestNextRetryAtUsesDefaults(t *testing.T) {
	next := NextRetryAt(baseTime, 1, BackoffConfig{}, nil)
	if d := next.Sub(baseTime); d < 0 || d > DefaultBackoff().BaseDelay {
		t.Fatalf("expected delay within the default base delay, got %s", d)
	}
}
