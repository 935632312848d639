package services

import (
	"math/rand"
	"time"
)

type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		BaseDelay: 200 * time.Millisecond,
		MaxDelay:  30 * time.Second,
	}
}

// NextRetryAt computes the next retry time using exponential backoff with
// full jitter. attempt is 1-based (1 => up to BaseDelay).
func NextRetryAt(now time.Time, attempt int, cfg BackoffConfig, rng *rand.Rand) time.Time {
	if attempt < 1 {
		attempt = 1
	}
	defaults := DefaultBackoff()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}

	// exponential: base * 2^(attempt-1), capped
	delay := cfg.BaseDelay
	for i := 1; i < attempt && delay < cfg.MaxDelay; i++ {
		delay *= 2
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := time.Duration(rng.Int63n(int64(delay) + 1))

	return now.Add(jitter).UTC()
}
