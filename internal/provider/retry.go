package provider

import (
	"context"
	"time"
)

// RetryPolicy controls retry behavior for provider calls. The policy is an
// explicit, injectable strategy: the provider layer itself never retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (1 = no retry)
	MaxAttempts int

	// InitialBackoff is the delay before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries
	MaxBackoff time.Duration

	// BackoffMultiply is the factor to multiply backoff by after each attempt
	BackoffMultiply float64
}

// NoRetry is the default policy: a single attempt.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// DefaultRetryPolicy provides sensible defaults when retries are wanted
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialBackoff:  1 * time.Second,
	MaxBackoff:      30 * time.Second,
	BackoffMultiply: 2.0,
}

// CompleteWithRetry runs Complete under the given policy with exponential
// backoff between attempts. It returns the last error if all attempts fail.
func CompleteWithRetry(
	ctx context.Context,
	p Provider,
	policy RetryPolicy,
	systemPrompt, userPrompt string,
	opts Options,
) (string, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := p.Complete(ctx, systemPrompt, userPrompt, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * policy.BackoffMultiply)
			if policy.MaxBackoff > 0 && backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	return "", lastErr
}
