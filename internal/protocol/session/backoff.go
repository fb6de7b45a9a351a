package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns the sleep after failed attempt N (1-based). The
// first retry always waits InitialDelay; relay defaults keep every later
// retry at the same spacing.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if attempt <= 1 || (cfg.Multiplier <= 1.0 && !cfg.Jitter) {
		return cfg.InitialDelay
	}

	growth := math.Max(cfg.Multiplier, 1.0)
	delay := float64(cfg.InitialDelay) * math.Pow(growth, float64(attempt-1))
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if cfg.Jitter {
		spread := 0.5
		if rng != nil {
			spread += rng.Float64()
		}
		delay *= spread
	}
	return time.Duration(delay)
}
