package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"
)

// Classifier lets an error opine on its own retry eligibility. evidence.Error
// implements this so a read that failed because the requested range fell
// outside the evidence (out-of-bounds) is never retried, while a transient
// network or disk error against a remote backend is.
type Classifier interface {
	Retryable() bool
}

// RetryPolicy governs how a failed evidence read is retried: how many
// attempts, how long to wait between them, and which errors qualify.
type RetryPolicy struct {
	RetryableErrors func(error) bool
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	Jitter          float64
}

// DefaultRetryPolicy returns the retry policy evidence.Source backends use
// unless a run configuration overrides it.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.1,
		RetryableErrors: DefaultRetryableErrors,
	}
}

// DefaultRetryableErrors decides whether a failed evidence read is worth
// retrying. A context cancellation or deadline is never retried: the
// caller has already given up. If the error implements Classifier (as
// evidence.Error does), its own Retryable() verdict wins, so an
// out-of-bounds read never gets retried while an I/O failure does.
// Anything else is retried, since an unclassified error from a remote
// backend is more likely transient than permanent.
func DefaultRetryableErrors(err error) bool {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}

	var c Classifier
	if errors.As(err, &c) {
		return c.Retryable()
	}

	return true
}

// Execute runs fn, retrying per the policy until it succeeds, a
// non-retryable error is returned, or attempts are exhausted.
func (p *RetryPolicy) Execute(fn func() error) error {
	return p.ExecuteWithContext(context.Background(), fn)
}

// ExecuteWithContext is Execute, abandoning further attempts once ctx is
// done, a scan's shutdown signal in practice.
func (p *RetryPolicy) ExecuteWithContext(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if p.RetryableErrors != nil && !p.RetryableErrors(err) {
			return err
		}

		if attempt < p.MaxAttempts-1 {
			delay := p.calculateDelay(attempt)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("evidence read failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

// calculateDelay computes the backoff before the next attempt: exponential
// growth from InitialDelay, capped at MaxDelay, with up to +/-Jitter
// fraction of randomness so concurrent readers against the same backend
// don't retry in lockstep.
func (p *RetryPolicy) calculateDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))

	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter > 0 {
		// #nosec G404 - weak random acceptable for jitter in retry backoff
		jitter := delay * p.Jitter * (2*rand.Float64() - 1)
		delay += jitter

		if delay < 0 {
			delay = float64(p.InitialDelay)
		}
	}

	return time.Duration(delay)
}

// RetryStats accumulates counters across every Execute call an executor
// has made, for HealthCheck reporting.
type RetryStats struct {
	TotalAttempts     int64
	SuccessfulRetries int64
	FailedRetries     int64
	TotalDelay        int64 // nanoseconds of wall time inside Execute calls, attempts and backoff waits together
}

// RetryExecutor wraps a RetryPolicy with running statistics, one per
// evidence backend (s3-evidence, azure-evidence, gcs-evidence).
type RetryExecutor struct {
	policy *RetryPolicy
	stats  RetryStats
}

// NewRetryExecutor builds an executor around policy, falling back to
// DefaultRetryPolicy if policy is nil.
func NewRetryExecutor(policy *RetryPolicy) *RetryExecutor {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &RetryExecutor{
		policy: policy,
	}
}

// Execute runs fn through the wrapped policy, updating TotalAttempts,
// SuccessfulRetries, FailedRetries, and TotalDelay as it goes.
func (e *RetryExecutor) Execute(fn func() error) error {
	startTime := time.Now()
	attempts := 0

	err := e.policy.Execute(func() error {
		attempts++
		atomic.AddInt64(&e.stats.TotalAttempts, 1)
		return fn()
	})

	delay := time.Since(startTime).Nanoseconds()
	atomic.AddInt64(&e.stats.TotalDelay, delay)

	if err == nil && attempts > 1 {
		atomic.AddInt64(&e.stats.SuccessfulRetries, 1)
	} else if err != nil {
		atomic.AddInt64(&e.stats.FailedRetries, 1)
	}

	return err
}

// GetStats returns a snapshot of the executor's running counters.
func (e *RetryExecutor) GetStats() RetryStats {
	return RetryStats{
		TotalAttempts:     atomic.LoadInt64(&e.stats.TotalAttempts),
		SuccessfulRetries: atomic.LoadInt64(&e.stats.SuccessfulRetries),
		FailedRetries:     atomic.LoadInt64(&e.stats.FailedRetries),
		TotalDelay:        atomic.LoadInt64(&e.stats.TotalDelay),
	}
}

// BulkRetryPolicy retries each item of a batch of evidence reads
// independently, tolerating a configurable fraction of permanent
// failures instead of aborting the whole batch on the first one.
type BulkRetryPolicy struct {
	*RetryPolicy
	PartialSuccess bool
	MinSuccessRate float64
}

// ExecuteBatch runs fn over every item, retrying each per the embedded
// RetryPolicy, and fails fast once the running success rate falls below
// MinSuccessRate after at least a quarter of the batch has been attempted.
func (p *BulkRetryPolicy) ExecuteBatch(items []interface{}, fn func(interface{}) error) ([]error, error) {
	errs := make([]error, len(items))
	successCount := 0

	for i, item := range items {
		err := p.Execute(func() error {
			return fn(item)
		})

		if err != nil {
			errs[i] = err
		} else {
			successCount++
		}

		if p.MinSuccessRate > 0 {
			currentRate := float64(successCount) / float64(i+1)
			if currentRate < p.MinSuccessRate && i > len(items)/4 {
				return errs, fmt.Errorf("success rate too low: %.2f%% < %.2f%%",
					currentRate*100, p.MinSuccessRate*100)
			}
		}
	}

	finalRate := float64(successCount) / float64(len(items))
	if !p.PartialSuccess && successCount < len(items) {
		return errs, fmt.Errorf("batch operation failed: %d/%d succeeded", successCount, len(items))
	}

	if p.MinSuccessRate > 0 && finalRate < p.MinSuccessRate {
		return errs, fmt.Errorf("success rate too low: %.2f%% < %.2f%%",
			finalRate*100, p.MinSuccessRate*100)
	}

	return errs, nil
}
