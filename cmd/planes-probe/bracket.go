package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/unklstewy/planes-near-me/pkg/adsb"
	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// trialFunc makes calls requests spaced delay apart and reports whether all
// of them got through without a 429.
type trialFunc func(ctx context.Context, delay time.Duration, calls int) (bool, error)

// bracket narrows the gap between the slowest failing and the fastest
// passing delay until it is within precision, returning the fastest safe
// delay found.
func bracket(ctx context.Context, logger *slog.Logger, trial trialFunc, minDelay, maxDelay, precision time.Duration, calls, maxIterations int) (time.Duration, error) {
	current := maxDelay
	safe := maxDelay
	failed := minDelay

	for iteration := 1; iteration <= maxIterations && safe-failed > precision; iteration++ {
		logger.Info("Testing delay", slog.Int("iteration", iteration), slog.Duration("delay", current))

		ok, err := trial(ctx, current, calls)
		if err != nil {
			return safe, err
		}

		if ok {
			logger.Info("Delay passed", slog.Duration("delay", current))
			safe = current
		} else {
			logger.Warn("Rate limited", slog.Duration("delay", current))
			failed = current
			if current >= safe {
				// The upper bound itself failed, nothing slower to try
				return safe, nil
			}
		}
		current = (safe + failed) / 2
	}

	return safe, nil
}

// upstreamTrial calls the feed directly at center.
func upstreamTrial(source adsb.DataSource, center coordinates.Geographic, radiusNM float64, logger *slog.Logger) trialFunc {
	return func(ctx context.Context, delay time.Duration, calls int) (bool, error) {
		for i := 0; i < calls; i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(delay):
				}
			}

			reports, err := source.NearbyAircraft(ctx, center, radiusNM)
			if rle, ok := adsb.IsRateLimitError(err); ok {
				logger.Debug("429 received",
					slog.Int("limit", rle.Headers.Limit),
					slog.Int("remaining", rle.Headers.Remaining),
					slog.Duration("retry_after", rle.RetryAfter))
				return false, nil
			}
			if err != nil {
				return false, err
			}
			logger.Debug("Call succeeded", slog.Int("call", i+1), slog.Int("aircraft", len(reports)))
		}
		return true, nil
	}
}
