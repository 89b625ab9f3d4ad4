package pipeline

import "time"

// Backoff returns the delay before the next attempt after retryCount
// failures: base minutes doubled per prior retry beyond the first. A base
// below one minute is raised to one.
func Backoff(baseMinutes, retryCount int) time.Duration {
	if baseMinutes < 1 {
		baseMinutes = 1
	}
	exponent := retryCount - 1
	if exponent < 0 {
		exponent = 0
	}
	return time.Duration(baseMinutes) * time.Minute << exponent
}
