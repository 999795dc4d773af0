package provider

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig controls backoff for transient call failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// Multiplier grows the backoff after each retry.
	Multiplier float64
	// Jitter adds up to this fraction of randomness to each delay.
	Jitter float64
}

// DefaultRetry returns the standard retry policy: two retries with
// exponential backoff.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// CallWithRetry invokes the caller, retrying transient failures per the
// classified error type: network errors up to MaxAttempts, rate limits with
// a longer backoff, timeouts at most once. Config and unknown failures
// surface immediately. Returns the content, the number of attempts made,
// and the final error.
func CallWithRetry(ctx context.Context, c Caller, req Request, rc RetryConfig) (string, int, error) {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}

	backoff := rc.InitialBackoff
	var lastErr error

	for attempt := 1; ; attempt++ {
		content, err := c.Call(ctx, req)
		if err == nil {
			return content, attempt, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", attempt, err
		}

		errType := TypeOf(err)
		if !errType.Retryable() || attempt >= rc.MaxAttempts {
			return "", attempt, err
		}
		if errType == ErrorTimeout && attempt > 1 {
			// A timed-out call is expensive; retry it once at most.
			return "", attempt, err
		}

		delay := backoff
		if errType == ErrorRateLimit {
			delay *= 4
		}
		if rc.Jitter > 0 {
			delay += time.Duration(rand.Float64() * rc.Jitter * float64(delay))
		}
		if delay > rc.MaxBackoff {
			delay = rc.MaxBackoff
		}

		select {
		case <-ctx.Done():
			return "", attempt, lastErr
		case <-time.After(delay):
		}

		backoff = time.Duration(float64(backoff) * rc.Multiplier)
	}
}
