package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           // attempts including the first; below 1 means one
	InitialWait time.Duration // doubled after every failed attempt
	MaxWait     time.Duration

	// Retryable classifies errors; nil uses IsTransientNetError
	Retryable func(error) bool
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

func (c *RetryConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

func (c *RetryConfig) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return IsTransientNetError(err)
}

// wait returns the pause after the given failed attempt (1-based)
func (c *RetryConfig) wait(attempt int) time.Duration {
	d := c.InitialWait
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.MaxWait > 0 && d >= c.MaxWait {
			return c.MaxWait
		}
	}
	if c.MaxWait > 0 && d > c.MaxWait {
		return c.MaxWait
	}
	return d
}

// IsTransientNetError reports whether err is a network failure that may
// go away on its own, such as a timeout or a refused connection.
func IsTransientNetError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED,
			syscall.ETIMEDOUT, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.ENETDOWN:
			return true
		}
	}
	return false
}

// RetryWithBackoff runs operation until it succeeds, fails with an error
// the config does not consider retryable, or runs out of attempts.
// With a single attempt the operation's error is returned unwrapped.
func RetryWithBackoff[T any](ctx context.Context, cfg *RetryConfig, operation func(context.Context) (T, error), operationName string) (T, error) {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	attempts := cfg.attempts()

	for attempt := 1; ; attempt++ {
		result, err := operation(ctx)
		switch {
		case err == nil:
			if attempt > 1 {
				DebugLog("%s succeeded on attempt %d/%d", operationName, attempt, attempts)
			}
			return result, nil
		case !cfg.retryable(err):
			return result, err
		case attempt >= attempts:
			if attempts == 1 {
				return result, err
			}
			WarnLog("%s failed after %d attempts: %v", operationName, attempts, err)
			return result, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}

		pause := cfg.wait(attempt)
		DebugLog("%s failed (attempt %d/%d), retrying in %v: %v", operationName, attempt, attempts, pause, err)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(pause):
		}
	}
}

// Retry is RetryWithBackoff for operations without a result
func Retry(ctx context.Context, cfg *RetryConfig, operation func(context.Context) error, operationName string) error {
	_, err := RetryWithBackoff(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	}, operationName)
	return err
}
