package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Func is an operation that may be attempted more than once
type Func func(ctx context.Context) error

// Classifier reports whether an error is worth another attempt
type Classifier func(error) bool

// Options defines the configuration for retries
type Options struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Classifier      Classifier
}

// DefaultOptions returns the backoff used for store bootstrap and event
// publication
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		Classifier:      IsRetryable,
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it without further attempts
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable retries everything except permanent and context errors
func IsRetryable(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do executes fn with exponential backoff until it succeeds, returns a
// non-retryable error, runs out of attempts or ctx is done.
func Do(ctx context.Context, opts Options, fn Func) error {
	classify := opts.Classifier
	if classify == nil {
		classify = IsRetryable
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !classify(err) {
			var p *permanentError
			if errors.As(err, &p) {
				return p.err
			}
			return err
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Backoff(attempt, opts)):
		}
	}

	return lastErr
}

// Backoff returns the wait after the given (1-based) attempt
func Backoff(attempt int, opts Options) time.Duration {
	if attempt <= 1 {
		return opts.InitialInterval
	}

	interval := float64(opts.InitialInterval) * math.Pow(opts.Multiplier, float64(attempt-1))
	if opts.MaxInterval > 0 && interval > float64(opts.MaxInterval) {
		return opts.MaxInterval
	}
	return time.Duration(interval)
}
