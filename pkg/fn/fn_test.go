package fn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// --- Result ---

func TestOkAndErr(t *testing.T) {
	r := Ok(7)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	v, err := r.Unwrap()
	if v != 7 || err != nil {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() || !e.IsErr() {
		t.Fatal("Err should be err")
	}
	if _, err := e.Unwrap(); err == nil || err.Error() != "boom" {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Slice ---

func TestMap(t *testing.T) {
	out := Map([]string{"a", "bb"}, func(s string) int { return len(s) })
	if len(out) != 2 || out[0] != 1 || out[1] != 2 {
		t.Fatalf("unexpected: %v", out)
	}
}

func TestFilter(t *testing.T) {
	out := Filter([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	if len(out) != 2 || out[0] != 2 || out[1] != 4 {
		t.Fatalf("unexpected: %v", out)
	}
}

// --- Parallel ---

func TestParMapPreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	out := ParMap(items, 2, func(i, v int) int {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10
	})
	for i, v := range items {
		if out[i] != v*10 {
			t.Fatalf("index %d: got %d", i, out[i])
		}
	}
}

func TestParMapBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	ParMap(make([]int, 20), 3, func(int, int) struct{} {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}
	})
	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 in flight, saw %d", peak.Load())
	}
}

func TestParMapEmpty(t *testing.T) {
	if out := ParMap([]int(nil), 4, func(i, v int) int { return v }); len(out) != 0 {
		t.Fatalf("expected empty, got %v", out)
	}
}

// --- Stages ---

func TestTracedStage(t *testing.T) {
	s := TracedStage("test-stage", Stage[int, int](func(_ context.Context, v int) Result[int] { return Ok(v + 1) }))
	if v, _ := s(context.Background(), 1).Unwrap(); v != 2 {
		t.Fatal("TracedStage failed")
	}

	e := TracedStage("err-stage", Stage[int, int](func(_ context.Context, _ int) Result[int] { return Err[int](errors.New("x")) }))
	if e(context.Background(), 1).IsOk() {
		t.Fatal("TracedStage error should propagate")
	}
}

// --- Retry ---

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("not yet"))
		}
		return Ok(42)
	})
	if v, _ := r.Unwrap(); v != 42 || attempts != 3 {
		t.Fatal("Retry should succeed on 3rd attempt")
	}
}

func TestRetryExhausted(t *testing.T) {
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(_ context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	if r.IsOk() {
		t.Fatal("Retry should fail after exhausting attempts")
	}
}

func TestRetryNotRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	r := Retry(context.Background(), RetryOpts{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}, func(_ context.Context) Result[int] {
		attempts++
		return Err[int](permanent)
	})
	if r.IsOk() || attempts != 1 {
		t.Fatalf("expected single attempt, got %d", attempts)
	}
	if _, err := r.Unwrap(); !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	r := Retry(ctx, RetryOpts{MaxAttempts: 100, InitialWait: 10 * time.Millisecond}, func(ctx context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
