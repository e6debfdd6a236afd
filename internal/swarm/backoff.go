package swarm

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig defines dial retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || cfg.InitialDelay <= 0 {
		return cfg.InitialDelay
	}
	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f += rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}
