// Package retrypolicy provides the single retry combinator used by all
// network calls in the pipeline. Callers declare how many attempts a call
// gets, how backoff grows, and which errors are worth retrying; the
// combinator owns the loop.
package retrypolicy

import (
	"context"
	"errors"
	"time"
)

// Class separates failures worth retrying from those that will recur
// identically.
type Class int

const (
	// Retryable marks transient failures: timeouts, connection errors,
	// server-side 5xx.
	Retryable Class = iota
	// Fatal marks failures that retrying cannot fix: malformed payloads,
	// unsupported formats, well-formed 4xx responses.
	Fatal
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 2 * time.Minute
)

// Policy describes one retry discipline.
type Policy struct {
	// MaxAttempts is the total number of tries, first call included.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Classify decides whether an error consumes retry budget. Nil treats
	// every error as Retryable.
	Classify func(error) Class
}

// Do runs op until it succeeds, fails fatally, or exhausts the attempt
// budget. The last error is returned unwrapped so callers can inspect it.
func (p Policy) Do(ctx context.Context, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if p.Classify != nil && p.Classify(err) == Fatal {
			return err
		}
		if attempt >= maxAttempts {
			return err
		}
		backoff := baseDelay << uint(attempt-1)
		if backoff > maxDelay {
			backoff = maxDelay
		}
		if sleepErr := SleepWithContext(ctx, backoff); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
}

// SleepWithContext waits for the duration unless the context ends first.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
