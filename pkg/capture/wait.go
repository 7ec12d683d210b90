package capture

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned when a condition did not hold within the wait
// budget.
var ErrWaitTimeout = errors.New("condition not met before timeout")

// WaitConfig tunes poll-until-condition behavior. Polling replaces the
// fixed sleeps the player flows would otherwise need: every wait is bounded
// and returns as soon as the condition holds.
type WaitConfig struct {
	// Interval is the initial delay between probes.
	Interval time.Duration

	// Backoff multiplies the interval after each failed probe. Values
	// below 1 are treated as 1 (constant interval).
	Backoff float64

	// MaxInterval caps the backed-off interval. Zero means uncapped.
	MaxInterval time.Duration

	// Timeout bounds the total wait.
	Timeout time.Duration
}

// DefaultWait is the standard probe cadence for player readiness checks.
func DefaultWait(timeout time.Duration) WaitConfig {
	return WaitConfig{
		Interval:    100 * time.Millisecond,
		Backoff:     1.5,
		MaxInterval: time.Second,
		Timeout:     timeout,
	}
}

// WaitUntil polls cond until it reports true, the timeout elapses, or the
// context is cancelled. Errors from individual probes are treated as "not
// yet" rather than escalated; transient DOM failures should not abort a
// wait that may still succeed.
func WaitUntil(ctx context.Context, cfg WaitConfig, cond func(ctx context.Context) (bool, error)) error {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Backoff < 1 {
		cfg.Backoff = 1
	}

	deadline := time.Now().Add(cfg.Timeout)
	interval := cfg.Interval

	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !time.Now().Add(interval).Before(deadline) {
			return ErrWaitTimeout
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}

		interval = time.Duration(float64(interval) * cfg.Backoff)
		if cfg.MaxInterval > 0 && interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}
}
