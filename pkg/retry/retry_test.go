package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func fastOptions() Options {
	opts := DefaultOptions()
	opts.InitialInterval = 1 * time.Microsecond
	opts.MaxInterval = 10 * time.Microsecond
	return opts
}

func TestRetryProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("backoff never exceeds the max interval", prop.ForAll(
		func(initialNs, maxNs int64, multiplier float64, attempt int) bool {
			initial := time.Duration(initialNs)
			max := time.Duration(maxNs)
			opts := Options{
				InitialInterval: initial,
				Multiplier:      multiplier,
				MaxInterval:     max,
			}
			backoff := Backoff(attempt, opts)

			if backoff > max {
				return false
			}
			if attempt == 1 && backoff != initial {
				return false
			}
			return attempt == 1 || backoff >= initial
		},
		gen.Int64Range(int64(10*time.Millisecond), int64(100*time.Millisecond)),
		gen.Int64Range(int64(1*time.Second), int64(5*time.Second)),
		gen.Float64Range(1.1, 3.0),
		gen.IntRange(1, 10),
	))

	properties.Property("retry does not exceed max attempts", prop.ForAll(
		func(maxAttempts int) bool {
			count := 0
			opts := fastOptions()
			opts.MaxAttempts = maxAttempts

			_ = Do(context.Background(), opts, func(context.Context) error {
				count++
				return errors.New("transient error")
			})

			return count == maxAttempts
		},
		gen.IntRange(1, 10),
	))

	properties.Property("permanent errors stop the loop immediately", prop.ForAll(
		func(failAtAttempt int) bool {
			count := 0
			fatal := errors.New("fatal error")
			opts := fastOptions()
			opts.MaxAttempts = 10

			err := Do(context.Background(), opts, func(context.Context) error {
				count++
				if count == failAtAttempt {
					return Permanent(fatal)
				}
				return errors.New("retryable error")
			})

			return count == failAtAttempt && err == fatal
		},
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRetrySuccess(t *testing.T) {
	count := 0
	opts := DefaultOptions()
	opts.InitialInterval = 1 * time.Millisecond

	err := Do(context.Background(), opts, func(context.Context) error {
		count++
		if count < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRetryCustomClassifier(t *testing.T) {
	count := 0
	opts := fastOptions()
	opts.Classifier = func(err error) bool { return err.Error() == "retryable" }

	err := Do(context.Background(), opts, func(context.Context) error {
		count++
		return errors.New("nope")
	})
	assert.EqualError(t, err, "nope")
	assert.Equal(t, 1, count)
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := DefaultOptions()
	opts.InitialInterval = 100 * time.Millisecond

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, opts, func(context.Context) error {
		return errors.New("waiting")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(Permanent(errors.New("bad dsn"))))
	assert.Nil(t, Permanent(nil))
}

func TestRetryAttemptsAtLeastOnce(t *testing.T) {
	for _, attempts := range []int{0, -3} {
		count := 0
		err := Do(context.Background(), Options{MaxAttempts: attempts}, func(context.Context) error {
			count++
			return errors.New("broker down")
		})
		assert.EqualError(t, err, "broker down")
		assert.Equal(t, 1, count)
	}

	called := false
	err := Do(context.Background(), Options{}, func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
