package device

import (
	"context"
	"fmt"
	"time"

	"github.com/panshift/panshift/pkg/util"
)

// Defaults for the readiness wait.
const (
	DefaultWaitTimeout   = 15 * time.Minute
	DefaultRetryInterval = 15 * time.Second
)

// WaitOptions bound the readiness poll.
type WaitOptions struct {
	// Timeout is the overall deadline.
	Timeout time.Duration
	// Interval spaces probe attempts.
	Interval time.Duration
	// MaxRetries caps probe attempts. Zero means bounded by Timeout only.
	MaxRetries int
}

// WaitReady polls until the device accepts a management connection. A probe
// is one Connect/Disconnect cycle. The wait stops on whichever trips first:
// a successful probe, context cancellation, the timeout, or MaxRetries
// attempts when set. The first probe always runs.
func WaitReady(ctx context.Context, name string, client Client, opts WaitOptions) error {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWaitTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultRetryInterval
	}

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	attempts := 0
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("device: wait for %s: %w", name, err)
		}

		attempts++
		if err := client.Connect(ctx); err == nil {
			client.Disconnect()
			return nil
		} else {
			lastErr = err
		}

		if opts.MaxRetries > 0 && attempts >= opts.MaxRetries {
			return &util.NotReadyError{
				Device:   name,
				Attempts: attempts,
				Elapsed:  time.Since(start),
				LastErr:  lastErr,
			}
		}
		// Stop rather than sleep into the deadline.
		if !time.Now().Add(opts.Interval).Before(deadline) {
			return &util.NotReadyError{
				Device:   name,
				Attempts: attempts,
				Elapsed:  time.Since(start),
				LastErr:  lastErr,
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("device: wait for %s: %w", name, ctx.Err())
		case <-time.After(opts.Interval):
		}
	}
}
