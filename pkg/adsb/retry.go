package adsb

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Backoff configures how upstream calls are retried.
type Backoff struct {
	// Retries is the number of attempts after the first one
	Retries int

	// Initial is the delay before the first retry
	Initial time.Duration

	// Max caps any single delay, including a server supplied Retry-After
	Max time.Duration

	// Factor multiplies the delay after each attempt
	Factor float64
}

// DefaultBackoff returns three retries starting at one second.
func DefaultBackoff() Backoff {
	return Backoff{
		Retries: 3,
		Initial: time.Second,
		Max:     time.Minute,
		Factor:  2.0,
	}
}

// delay returns the wait before retry number attempt (0-based).
func (b Backoff) delay(attempt int, err error) time.Duration {
	if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
		return min(rle.RetryAfter, b.Max)
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := time.Duration(float64(b.Initial) * math.Pow(factor, float64(attempt)))
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Retryable reports whether err is worth another attempt: rate limits,
// 5xx responses and transport failures. Other 4xx responses are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := IsRateLimitError(err); ok {
		return true
	}
	if se, ok := IsStatusError(err); ok {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// Retry runs fn until it succeeds, returns a final error, or the attempts
// run out. The last error is wrapped when retries are exhausted.
func Retry[T any](ctx context.Context, b Backoff, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if !Retryable(err) {
			return zero, err
		}
		if attempt >= b.Retries {
			return zero, fmt.Errorf("max retries (%d) exceeded: %w", b.Retries, err)
		}

		timer := time.NewTimer(b.delay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
