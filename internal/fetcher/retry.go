package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"donation-tracker/internal/donation"
)

// Schedule is the wait inserted before each attempt. The first attempt is
// immediate; there are exactly len(Schedule) attempts.
var Schedule = []time.Duration{0, 1000 * time.Millisecond, 3000 * time.Millisecond}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryOptions tune the retrying fetcher.
type RetryOptions struct {
	Sleep SleepFunc
}

// Retry wraps a DonationFetcher with the fixed Schedule.
type Retry struct {
	inner  DonationFetcher
	sleep  SleepFunc
	logger zerolog.Logger
}

// NewRetry builds a retrying fetcher around inner.
func NewRetry(inner DonationFetcher, opts RetryOptions, logger zerolog.Logger) *Retry {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return &Retry{
		inner:  inner,
		sleep:  sleep,
		logger: logger.With().Str("component", "retry_fetcher").Logger(),
	}
}

// FetchDonations tries inner once per Schedule slot and returns the last
// error once the schedule is exhausted or ctx is cancelled.
func (r *Retry) FetchDonations(ctx context.Context) (donation.Snapshot, error) {
	var lastErr error
	for attempt, delay := range Schedule {
		if err := r.sleep(ctx, delay); err != nil {
			if lastErr != nil {
				return donation.Snapshot{}, lastErr
			}
			return donation.Snapshot{}, err
		}

		snap, err := r.inner.FetchDonations(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Info().Int("attempt", attempt+1).Msg("fetch recovered after retry")
			}
			return snap, nil
		}
		lastErr = err

		r.logger.Warn().Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", len(Schedule)).
			Msg("fetch attempt failed")

		if ctx.Err() != nil {
			break
		}
	}
	return donation.Snapshot{}, lastErr
}

// Sleep blocks for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ DonationFetcher = (*Retry)(nil)
