package accounts

import "time"

// IsWithinThresholdPeriod checks that t is at most maxAge old at now
func IsWithinThresholdPeriod(now, t time.Time, maxAge time.Duration) bool {
	threshold := now.Add(-maxAge)
	return !t.Before(threshold)
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(now, t time.Time, maxAge time.Duration) bool {
	return !IsWithinThresholdPeriod(now, t, maxAge)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
