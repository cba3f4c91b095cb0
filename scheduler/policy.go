package scheduler

import "time"

// Policy decides how long to wait before the next proactive refresh
type Policy struct {
	// Interval is the longest the scheduler ever waits between refreshes
	Interval time.Duration
	// Fraction of the remaining token lifetime to wait, so short lived tokens are refreshed before they expire
	Fraction float64
	// MinDelay bounds how often refreshes can fire, including retries after transient failures
	MinDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Interval: 15 * time.Minute,
		Fraction: 0.5,
		MinDelay: time.Second,
	}
}

// Delay returns min(Interval, Fraction*(expiresAt-now)) clamped to MinDelay.
// An unknown expiry (opaque token) waits the full Interval; an expired token waits MinDelay.
func (p Policy) Delay(now, expiresAt time.Time) time.Duration {
	delay := p.Interval
	if !expiresAt.IsZero() {
		remaining := expiresAt.Sub(now)
		if fractional := time.Duration(float64(remaining) * p.Fraction); fractional < delay {
			delay = fractional
		}
	}
	if delay < p.MinDelay {
		delay = p.MinDelay
	}
	return delay
}
