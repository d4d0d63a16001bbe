// Package retry runs calls against external services with bounded
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Policy configures the backoff. The n-th retry waits
// min(InitialDelay * Multiplier^(n-1), MaxDelay).
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// DefaultPolicy waits 1s before the first retry and gives up after 6 attempts.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		MaxAttempts:  6,
	}
}

// Delay returns the wait before retry number n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.InitialDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ExternalServiceError is returned once every attempt against an external
// service has failed.
type ExternalServiceError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// IsExternal reports whether err carries an ExternalServiceError.
func IsExternal(err error) bool {
	var ese *ExternalServiceError
	return errors.As(err, &ese)
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops retrying immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a permanent error, the context is
// done, or MaxAttempts is reached.
func Do(ctx context.Context, op string, p Policy, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt - 1)
			slog.Warn("Retrying external call", "op", op, "attempt", attempt, "backoff", delay, "error", lastErr)
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return &ExternalServiceError{Op: op, Attempts: attempt - 1, Err: errors.Join(lastErr, ctx.Err())}
				case <-timer.C:
				}
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return &ExternalServiceError{Op: op, Attempts: attempt, Err: perm.err}
		}
		if ctx.Err() != nil {
			return &ExternalServiceError{Op: op, Attempts: attempt, Err: errors.Join(err, ctx.Err())}
		}
	}
	return &ExternalServiceError{Op: op, Attempts: attempts, Err: lastErr}
}
