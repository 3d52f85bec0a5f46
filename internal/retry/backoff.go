package retry

import "time"

// maxShift caps the doubling so large attempt counts cannot overflow the
// duration.
const maxShift = 16

// ExponentialBackoff returns base * 2^attempt, capped at base * 2^16.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}
	return base * (1 << attempt)
}
