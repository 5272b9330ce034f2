package remote

import (
	"net/http"
	"time"
)

// RetryPolicy controls how rate-limited calls are retried
type RetryPolicy struct {
	// RetryAttempts is the number of retries after the first call
	RetryAttempts int
	// BaseDelay is doubled for every retry: BaseDelay * 2^attemptIndex
	BaseDelay time.Duration
	// RateLimitStatus is the only status code that is retried
	RateLimitStatus int
}

// DelayFor returns the wait before retry number attempt (0-based)
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<attempt)
}

// Config holds remote client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryPolicy

	// ClickPath is the token click endpoint; it has not been confirmed against the live API
	ClickPath string
}

// DefaultConfig returns the settings used against the live game API
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://case-clicker.com/api",
		Timeout: 30 * time.Second,
		Retry: RetryPolicy{
			RetryAttempts:   3,
			BaseDelay:       5 * time.Second,
			RateLimitStatus: http.StatusTooManyRequests,
		},
		ClickPath: "/click",
	}
}
