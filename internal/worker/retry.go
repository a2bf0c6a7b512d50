package worker

import (
	"math"
	"time"
)

// RetryPolicy defines capped exponential backoff parameters.
type RetryPolicy struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// MaxExponent caps the exponent before MaxDelay is applied; 0 means uncapped.
	MaxExponent int
}

// ConnectorBackoff is used after failed connector syncs: 5m, 10m, 20m ... capped at 6h.
var ConnectorBackoff = RetryPolicy{
	InitialDelay:  5 * time.Minute,
	MaxDelay:      6 * time.Hour,
	BackoffFactor: 2,
	MaxExponent:   8,
}

// Backoff returns the delay after the given number of consecutive failures.
// Zero failures yields InitialDelay.
func (r RetryPolicy) Backoff(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}
	if r.MaxExponent > 0 && failures > r.MaxExponent {
		failures = r.MaxExponent
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(failures))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	d := time.Duration(delay)
	if d <= 0 {
		d = r.InitialDelay
	}
	return d
}

// NextDelay returns delay for a given attempt (1-based).
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return r.Backoff(attempt - 1)
}
