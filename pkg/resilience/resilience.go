// Package resilience composes the per-operation protection stack as explicit
// function wrapping instead of declarative interception:
//
//	bulkhead (fail-fast concurrency cap)
//	  → circuit breaker (Closed → Open → HalfOpen)
//	    → per-attempt timeout
//	      → the wrapped operation
//
// with bounded exponential-backoff retry around the breaker for operations
// declared idempotent. One Executor is built per operation kind so a failing
// operation cannot exhaust another's capacity.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrBulkheadFull is returned when the operation's concurrency cap is
	// reached. Calls are rejected immediately, never queued.
	ErrBulkheadFull = errors.New("resilience: bulkhead full")

	// ErrCircuitOpen is returned while the breaker is open (or half-open and
	// saturated); the wrapped operation is not invoked.
	ErrCircuitOpen = errors.New("resilience: circuit open")
)

// Policy configures one Executor.
type Policy struct {
	// MaxConcurrent caps in-flight invocations (bulkhead width).
	MaxConcurrent int64
	// Timeout bounds each attempt; expiry counts as a failure for the breaker.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first.
	// Leave 0 for non-idempotent operations (create/update/delete).
	MaxRetries    uint
	RetryInterval time.Duration

	// Breaker tuning: the breaker trips when, within a rolling window,
	// at least BreakerMinRequests calls were made and the failure ratio
	// reached BreakerFailureRatio. It stays open for BreakerOpenFor, then
	// admits BreakerTrialCalls half-open probes.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
	BreakerWindow       time.Duration
	BreakerTrialCalls   uint32

	// IsCallerError marks errors that are the caller's fault (validation,
	// not-found, version conflicts). Such errors are never retried and do
	// not count as failures for breaker accounting.
	IsCallerError func(error) bool
}

// DefaultPolicy returns sane production defaults for a non-idempotent
// operation. Reads additionally set MaxRetries.
func DefaultPolicy() Policy {
	return Policy{
		MaxConcurrent:       25,
		Timeout:             5 * time.Second,
		RetryInterval:       100 * time.Millisecond,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.5,
		BreakerOpenFor:      30 * time.Second,
		BreakerWindow:       60 * time.Second,
		BreakerTrialCalls:   3,
	}
}

// Executor wraps one operation kind with the full protection stack.
type Executor[T any] struct {
	name    string
	policy  Policy
	breaker *gobreaker.CircuitBreaker[T]
	sem     *semaphore.Weighted
}

// NewExecutor builds an Executor for the named operation.
func NewExecutor[T any](name string, p Policy) *Executor[T] {
	isCallerError := p.IsCallerError
	if isCallerError == nil {
		isCallerError = func(error) bool { return false }
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: p.BreakerTrialCalls,
		Interval:    p.BreakerWindow,
		Timeout:     p.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < p.BreakerMinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= p.BreakerFailureRatio
		},
		// Caller errors are the operation working as intended; only
		// infrastructure failures move the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerError(err)
		},
	}
	return &Executor[T]{
		name:    name,
		policy:  p,
		breaker: gobreaker.NewCircuitBreaker[T](settings),
		sem:     semaphore.NewWeighted(p.MaxConcurrent),
	}
}

// Name returns the operation name the executor guards.
func (e *Executor[T]) Name() string { return e.name }

// State returns the current breaker state.
func (e *Executor[T]) State() gobreaker.State { return e.breaker.State() }

// Execute runs op under the protection stack. The returned error is
// ErrBulkheadFull or ErrCircuitOpen when the stack rejected the call, the
// operation's own error otherwise.
func (e *Executor[T]) Execute(ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if !e.sem.TryAcquire(1) {
		return zero, ErrBulkheadFull
	}
	defer e.sem.Release(1)

	attempt := func() (T, error) {
		res, err := e.breaker.Execute(func() (T, error) {
			attemptCtx := ctx
			if e.policy.Timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, e.policy.Timeout)
				defer cancel()
			}
			return op(attemptCtx)
		})
		if err != nil {
			err = e.mapBreakerErr(err)
		}
		return res, err
	}

	if e.policy.MaxRetries == 0 {
		return attempt()
	}

	retryable := func() (T, error) {
		res, err := attempt()
		if err != nil && !e.shouldRetry(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = e.policy.RetryInterval
	return backoff.Retry(ctx, retryable,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(e.policy.MaxRetries+1),
	)
}

// shouldRetry rejects retrying caller errors and short-circuited calls:
// hammering an open breaker or a full bulkhead only prolongs the outage.
func (e *Executor[T]) shouldRetry(err error) bool {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrBulkheadFull) {
		return false
	}
	if e.policy.IsCallerError != nil && e.policy.IsCallerError(err) {
		return false
	}
	return true
}

func (e *Executor[T]) mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// IsRejection reports whether err originated in the protection stack itself
// (breaker open or bulkhead full) rather than in the wrapped operation.
func IsRejection(err error) bool {
	return errors.Is(err, ErrBulkheadFull) || errors.Is(err, ErrCircuitOpen)
}
