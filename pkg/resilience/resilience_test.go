package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testPolicy() Policy {
	p := DefaultPolicy()
	p.MaxConcurrent = 2
	p.Timeout = time.Second
	p.RetryInterval = time.Millisecond
	p.BreakerMinRequests = 3
	p.BreakerOpenFor = time.Minute
	return p
}

func TestExecute_Success(t *testing.T) {
	exec := NewExecutor[int]("op", testPolicy())

	got, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestExecute_OperationError(t *testing.T) {
	exec := NewExecutor[int]("op", testPolicy())
	opErr := errors.New("db down")

	_, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 0, opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("expected operation error, got %v", err)
	}
	if IsRejection(err) {
		t.Fatal("operation error must not classify as a stack rejection")
	}
}

func TestExecute_BulkheadFull(t *testing.T) {
	p := testPolicy()
	p.MaxConcurrent = 1
	exec := NewExecutor[int]("op", p)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()
	<-started

	_, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 0, nil
	})
	if !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("expected ErrBulkheadFull, got %v", err)
	}
	if !IsRejection(err) {
		t.Fatal("bulkhead rejection must classify as a stack rejection")
	}

	close(release)
	wg.Wait()
}

func TestExecute_BreakerOpensAfterFailures(t *testing.T) {
	p := testPolicy()
	p.BreakerMinRequests = 3
	p.BreakerFailureRatio = 0.5
	exec := NewExecutor[int]("op", p)

	fail := func(ctx context.Context) (int, error) { return 0, errors.New("db down") }
	for i := 0; i < 3; i++ {
		_, _ = exec.Execute(context.Background(), fail)
	}

	calls := 0
	_, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 0 {
		t.Fatal("operation must not run while the breaker is open")
	}
}

func TestExecute_CallerErrorsDoNotTripBreaker(t *testing.T) {
	callerErr := errors.New("not found")
	p := testPolicy()
	p.BreakerMinRequests = 3
	p.IsCallerError = func(err error) bool { return errors.Is(err, callerErr) }
	exec := NewExecutor[int]("op", p)

	for i := 0; i < 10; i++ {
		_, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
			return 0, callerErr
		})
		if !errors.Is(err, callerErr) {
			t.Fatalf("call %d: expected caller error, got %v", i, err)
		}
	}

	// Breaker stayed closed: a normal call still goes through.
	got, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("expected success after caller errors, got %d, %v", got, err)
	}
}

func TestExecute_RetriesTransientFailures(t *testing.T) {
	p := testPolicy()
	p.MaxRetries = 2
	exec := NewExecutor[int]("op", p)

	calls := 0
	got, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 9, nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if got != 9 || calls != 2 {
		t.Fatalf("expected success on attempt 2, got value %d after %d calls", got, calls)
	}
}

func TestExecute_NoRetryOnCallerError(t *testing.T) {
	callerErr := errors.New("validation failed")
	p := testPolicy()
	p.MaxRetries = 3
	p.IsCallerError = func(err error) bool { return errors.Is(err, callerErr) }
	exec := NewExecutor[int]("op", p)

	calls := 0
	_, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, callerErr
	})
	if !errors.Is(err, callerErr) {
		t.Fatalf("expected caller error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("caller errors must not be retried, got %d calls", calls)
	}
}

func TestExecute_TimeoutBoundsAttempt(t *testing.T) {
	p := testPolicy()
	p.Timeout = 10 * time.Millisecond
	exec := NewExecutor[int]("op", p)

	_, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return 1, nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestIsRejection(t *testing.T) {
	if !IsRejection(ErrBulkheadFull) || !IsRejection(ErrCircuitOpen) {
		t.Fatal("stack sentinels must classify as rejections")
	}
	if IsRejection(errors.New("db down")) || IsRejection(nil) {
		t.Fatal("ordinary errors must not classify as rejections")
	}
}
