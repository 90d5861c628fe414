package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codescope/pkg/logging"
)

// Defaults match the provider's observed recovery behavior: a short
// fixed pause between key switches, and a hard cap on how long one
// logical call may keep retrying.
const (
	DefaultDeadline = 4 * time.Minute
	DefaultBackoff  = 1 * time.Second
)

// ErrRetryExhausted marks a failure after the retry deadline elapsed.
// Use errors.Is to detect it; the concrete *ExhaustedError carries the
// attempt details.
var ErrRetryExhausted = errors.New("retry budget exhausted")

// ExhaustedError reports how the retry budget was spent.
type ExhaustedError struct {
	Attempts  int
	KeysTried int
	Elapsed   time.Duration
	LastErr   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts across %d credentials in %s: last error: %v",
		e.Attempts, e.KeysTried, e.Elapsed.Round(time.Second), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

func (e *ExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

// Options tune one Execute call. Zero values fall back to defaults.
type Options struct {
	// Deadline bounds total wall-clock retry time for this one logical
	// call. Independent across calls; never shared globally.
	Deadline time.Duration
	// Backoff is the fixed pause before retrying after a rotatable
	// failure.
	Backoff time.Duration
	// Fragments configure the substring fallback of the error
	// classifier.
	Fragments []string
	// Logger receives one entry per retry decision. Defaults to the
	// package logger.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.Logger == nil {
		o.Logger = logging.Get()
	}
	return o
}

// Execute builds a client from the credential at the pool cursor and
// runs work against it, retrying with the next credential on rotatable
// failures until the deadline elapses. Non-rotatable errors propagate
// immediately. The first success returns immediately.
func Execute[C, T any](
	ctx context.Context,
	pool *Pool,
	opts Options,
	factory func(ctx context.Context, credential string) (C, error),
	work func(ctx context.Context, client C) (T, error),
) (T, error) {
	var zero T
	opts = opts.withDefaults()

	start := time.Now()
	attempts := 0
	tried := make(map[int]struct{})
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if attempts > 0 && time.Since(start) >= opts.Deadline {
			return zero, &ExhaustedError{
				Attempts:  attempts,
				KeysTried: len(tried),
				Elapsed:   time.Since(start),
				LastErr:   lastErr,
			}
		}

		keyIdx := pool.Index()
		tried[keyIdx] = struct{}{}
		attempts++

		result, err := attemptOnce(ctx, pool.Current(), factory, work)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Rotatable(err, opts.Fragments) {
			opts.Logger.Warn("llm call failed with non-retryable error",
				zap.Int("attempt", attempts),
				zap.Int("key_index", keyIdx),
				zap.Error(err))
			return zero, err
		}

		pool.Advance()
		opts.Logger.Info("rotating credential after retryable error",
			zap.Int("attempt", attempts),
			zap.Int("key_index", keyIdx),
			zap.Int("next_key_index", pool.Index()),
			zap.Duration("backoff", opts.Backoff),
			zap.Error(err))

		select {
		case <-time.After(opts.Backoff):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func attemptOnce[C, T any](
	ctx context.Context,
	credential string,
	factory func(ctx context.Context, credential string) (C, error),
	work func(ctx context.Context, client C) (T, error),
) (T, error) {
	var zero T
	client, err := factory(ctx, credential)
	if err != nil {
		return zero, err
	}
	return work(ctx, client)
}
