// Package retry provides retry mechanisms with exponential backoff
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int              // Maximum number of attempts (0 = unlimited)
	InitialDelay    time.Duration    // Initial delay between retries
	MaxDelay        time.Duration    // Maximum delay between retries
	Multiplier      float64          // Backoff multiplier
	RandomizeFactor float64          // Jitter factor (0-1)
	RetryIf         func(error) bool // Function to determine if error is retryable
}

// DefaultConfig returns the retry policy used at the adapter boundary:
// up to 3 attempts, 1s initial delay, doubling per attempt.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.1,
		RetryIf:         DefaultRetryIf,
	}
}

// Operation represents a retryable operation
type Operation func(ctx context.Context) error

// Result contains the result of a retry operation
type Result struct {
	Attempts int           // Number of attempts made
	Duration time.Duration // Total duration of all attempts
	Err      error         // Final error (nil if successful)
}

// Retrier provides retry functionality
type Retrier struct {
	config *Config
}

// New creates a new retrier with the given configuration
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.RandomizeFactor < 0 {
		config.RandomizeFactor = 0
	} else if config.RandomizeFactor > 1 {
		config.RandomizeFactor = 1
	}
	if config.RetryIf == nil {
		config.RetryIf = DefaultRetryIf
	}
	return &Retrier{config: config}
}

// Do executes the operation with retries
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	start := time.Now()
	result := &Result{Attempts: 0}

	var lastErr error
	delay := r.config.InitialDelay

retryLoop:
	for attempt := 1; r.config.MaxAttempts == 0 || attempt <= r.config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			lastErr = fmt.Errorf("context cancelled: %w", err)
			break
		}

		err := op(ctx)
		if err == nil {
			result.Duration = time.Since(start)
			return result
		}

		lastErr = err

		if !r.config.RetryIf(err) {
			break
		}

		if r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts {
			break
		}

		select {
		case <-time.After(r.jitter(delay)):
			delay = r.nextDelay(delay)
		case <-ctx.Done():
			lastErr = fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
			break retryLoop
		}
	}

	result.Duration = time.Since(start)
	result.Err = lastErr
	return result
}

// jitter randomizes the delay within the configured factor
func (r *Retrier) jitter(delay time.Duration) time.Duration {
	if r.config.RandomizeFactor == 0 {
		return delay
	}
	delta := float64(delay) * r.config.RandomizeFactor
	minDelay := float64(delay) - delta
	maxDelay := float64(delay) + delta
	return time.Duration(minDelay + rand.Float64()*(maxDelay-minDelay))
}

// nextDelay calculates the next delay with exponential backoff
func (r *Retrier) nextDelay(currentDelay time.Duration) time.Duration {
	nextDelay := time.Duration(float64(currentDelay) * r.config.Multiplier)
	if nextDelay > r.config.MaxDelay {
		return r.config.MaxDelay
	}
	return nextDelay
}

// TemporaryError represents a temporary error that should be retried
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string {
	return fmt.Sprintf("temporary error: %v", e.Err)
}

func (e *TemporaryError) Unwrap() error {
	return e.Err
}

func (e *TemporaryError) Temporary() bool {
	return true
}

// PermanentError represents a permanent error that should not be retried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Temporary marks a failure as retryable
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

// Permanent marks a failure as non-retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// DefaultRetryIf is the default retry predicate: explicit classification
// wins, cancellation is never retried, upstream timeouts are.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var permErr *PermanentError
	if errors.As(err, &permErr) {
		return false
	}

	var tempErr *TemporaryError
	if errors.As(err, &tempErr) {
		return true
	}

	type temporary interface {
		Temporary() bool
	}
	var te temporary
	if errors.As(err, &te) {
		return te.Temporary()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return true
}

// Retry executes the operation with the default adapter policy
func Retry(ctx context.Context, op Operation) error {
	r := New(DefaultConfig())
	result := r.Do(ctx, op)
	return result.Err
}

// RetryWithConfig executes the operation with custom configuration
func RetryWithConfig(ctx context.Context, config *Config, op Operation) error {
	r := New(config)
	result := r.Do(ctx, op)
	return result.Err
}
