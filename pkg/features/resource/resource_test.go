package resource

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/attune-dev/attune/pkg/attune"
)

func TestNewFetchesImmediately(t *testing.T) {
	rt := attune.NewRuntime()

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		return "data", nil
	}, WithSync[string]())

	if r.State() != Ready {
		t.Errorf("Expected Ready, got %v", r.State())
	}
	if r.Data() != "data" {
		t.Errorf("Expected 'data', got %q", r.Data())
	}
	if r.Err() != nil {
		t.Errorf("Expected no error, got %v", r.Err())
	}
	if r.Loading() {
		t.Error("Expected Loading() to be false")
	}
}

func TestResourceError(t *testing.T) {
	rt := attune.NewRuntime()
	boom := errors.New("fail")

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		return "", boom
	}, WithSync[string]())

	if r.State() != Errored {
		t.Errorf("Expected Errored, got %v", r.State())
	}
	if !errors.Is(r.Err(), boom) {
		t.Errorf("Expected raw fetch error, got %v", r.Err())
	}
	if r.Data() != "" {
		t.Errorf("Expected zero data, got %q", r.Data())
	}
}

func TestFetcherPanicBecomesError(t *testing.T) {
	rt := attune.NewRuntime()

	r := New(rt, func(_ context.Context, _ FetchInfo[int]) (int, error) {
		panic("kaboom")
	}, WithSync[int](), WithName[int]("users"))

	if r.State() != Errored {
		t.Fatalf("Expected Errored, got %v", r.State())
	}
	msg := r.Err().Error()
	if !strings.Contains(msg, "fetcher panicked") {
		t.Errorf("Expected panic wrap, got %q", msg)
	}
	if !strings.Contains(msg, "users") {
		t.Errorf("Expected resource name in error, got %q", msg)
	}
}

func TestPendingWhileLoading(t *testing.T) {
	rt := attune.NewRuntime()
	gate := make(chan struct{})

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		<-gate
		return "done", nil
	})

	if r.State() != Pending {
		t.Errorf("Expected Pending, got %v", r.State())
	}
	if !r.Loading() {
		t.Error("Expected Loading() to be true")
	}
	if r.Data() != "" {
		t.Errorf("Expected zero data while pending, got %q", r.Data())
	}

	close(gate)
	v, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != "done" {
		t.Errorf("Expected 'done', got %q", v)
	}
}

func TestRefetchKeepsDataWhileRefreshing(t *testing.T) {
	rt := attune.NewRuntime()
	infos := make(chan FetchInfo[string], 2)
	release := make(chan string)

	fetcher := func(_ context.Context, info FetchInfo[string]) (string, error) {
		infos <- info
		return <-release, nil
	}

	r := New(rt, fetcher)
	first := <-infos
	if first.Value != "" || first.Refetching {
		t.Errorf("Expected zero initial FetchInfo, got %+v", first)
	}
	release <- "one"
	if _, err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	r.Refetch()
	if r.State() != Refreshing {
		t.Errorf("Expected Refreshing, got %v", r.State())
	}
	if r.Data() != "one" {
		t.Errorf("Expected data kept during refresh, got %q", r.Data())
	}
	if r.Latest() != "one" {
		t.Errorf("Expected latest kept during refresh, got %q", r.Latest())
	}

	second := <-infos
	if second.Value != "one" {
		t.Errorf("Expected prior value in FetchInfo, got %q", second.Value)
	}
	if !second.Refetching {
		t.Error("Expected Refetching flag on refetch")
	}

	release <- "two"
	v, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != "two" || r.Latest() != "two" {
		t.Errorf("Expected 'two' after refresh, got %q / %q", v, r.Latest())
	}
}

func TestSupersededFetchIsDiscarded(t *testing.T) {
	rt := attune.NewRuntime()
	entered := make(chan struct{})
	canceled := make(chan struct{})
	var calls atomic.Int32

	r := New(rt, func(ctx context.Context, _ FetchInfo[string]) (string, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-ctx.Done()
			close(canceled)
			return "", ctx.Err()
		}
		return "42", nil
	})
	<-entered

	r.Refetch()

	v, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != "42" {
		t.Errorf("Expected '42', got %q", v)
	}

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for superseded fetch to be canceled")
	}
	if r.Err() != nil {
		t.Errorf("Expected stale cancellation to be discarded, got %v", r.Err())
	}
	if r.Data() != "42" {
		t.Errorf("Expected '42' to survive discard, got %q", r.Data())
	}
}

func TestWaitUnresolved(t *testing.T) {
	rt := attune.NewRuntime()

	r := NewWithSource(rt, func() (string, bool) {
		return "", false
	}, func(_ context.Context, _ string, _ FetchInfo[string]) (string, error) {
		t.Error("Fetcher should not run without a source value")
		return "", nil
	})

	if _, err := r.Wait(context.Background()); !errors.Is(err, ErrUnresolved) {
		t.Errorf("Expected ErrUnresolved, got %v", err)
	}
}

func TestWaitContextCanceled(t *testing.T) {
	rt := attune.NewRuntime()
	gate := make(chan struct{})
	defer close(gate)

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		<-gate
		return "late", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFetchHonorsStaleTime(t *testing.T) {
	rt := attune.NewRuntime()
	clock := clockz.NewFakeClock()
	var calls atomic.Int32

	fetcher := func(_ context.Context, _ FetchInfo[string]) (string, error) {
		calls.Add(1)
		return "cached", nil
	}
	r := New(rt, fetcher, WithSync[string](), WithClock[string](clock), WithStaleTime[string](time.Minute))

	if calls.Load() != 1 {
		t.Fatalf("Expected 1 initial fetch, got %d", calls.Load())
	}

	r.Fetch()
	if calls.Load() != 1 {
		t.Errorf("Expected fresh data to skip fetch, got %d calls", calls.Load())
	}

	clock.Advance(90 * time.Second)
	r.Fetch()
	if calls.Load() != 2 {
		t.Errorf("Expected stale data to refetch, got %d calls", calls.Load())
	}
}

func TestInvalidateBypassesStaleTime(t *testing.T) {
	rt := attune.NewRuntime()
	clock := clockz.NewFakeClock()
	var calls atomic.Int32

	fetcher := func(_ context.Context, _ FetchInfo[string]) (string, error) {
		calls.Add(1)
		return "cached", nil
	}
	r := New(rt, fetcher, WithSync[string](), WithClock[string](clock), WithStaleTime[string](time.Minute))

	r.Fetch()
	if calls.Load() != 1 {
		t.Fatalf("Expected fresh data to skip fetch, got %d calls", calls.Load())
	}

	r.Invalidate()
	r.Fetch()
	if calls.Load() != 2 {
		t.Errorf("Expected invalidated data to refetch, got %d calls", calls.Load())
	}
}

func TestFetchNoOpWhileLoading(t *testing.T) {
	rt := attune.NewRuntime()
	gate := make(chan struct{})
	var calls atomic.Int32

	fetcher := func(_ context.Context, _ FetchInfo[string]) (string, error) {
		calls.Add(1)
		<-gate
		return "v", nil
	}
	r := New(rt, fetcher)

	r.Fetch()
	r.Fetch()
	close(gate)
	if _, err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected concurrent Fetch to be a no-op, got %d calls", calls.Load())
	}
}

func TestMutateSetsReadyDirectly(t *testing.T) {
	rt := attune.NewRuntime()
	boom := errors.New("fail")
	var failing atomic.Bool
	failing.Store(true)

	r := New(rt, func(_ context.Context, info FetchInfo[int]) (int, error) {
		if failing.Load() {
			return 0, boom
		}
		return info.Value + 1, nil
	}, WithSync[int]())
	if r.State() != Errored {
		t.Fatalf("Expected Errored, got %v", r.State())
	}

	r.Mutate(7)
	if r.State() != Ready {
		t.Errorf("Expected Ready after Mutate, got %v", r.State())
	}
	if r.Data() != 7 || r.Latest() != 7 {
		t.Errorf("Expected 7, got %d / %d", r.Data(), r.Latest())
	}
	if r.Err() != nil {
		t.Errorf("Expected Mutate to clear error, got %v", r.Err())
	}

	failing.Store(false)
	r.Refetch()
	if r.Data() != 8 {
		t.Errorf("Expected refetch to see mutated value, got %d", r.Data())
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	rt := attune.NewRuntime()
	var calls atomic.Int32

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("transient")
		}
		return "finally", nil
	}, WithSync[string](), WithRetry[string](RetryOptions{MaxRetries: 3}))

	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
	if r.State() != Ready || r.Data() != "finally" {
		t.Errorf("Expected Ready 'finally', got %v %q", r.State(), r.Data())
	}
}

func TestRetryExhaustedKeepsLastError(t *testing.T) {
	rt := attune.NewRuntime()
	boom := errors.New("always down")
	var calls atomic.Int32

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		calls.Add(1)
		return "", boom
	}, WithSync[string](), WithRetry[string](RetryOptions{MaxRetries: 2}))

	if calls.Load() != 3 {
		t.Errorf("Expected 1+2 attempts, got %d", calls.Load())
	}
	if r.State() != Errored {
		t.Errorf("Expected Errored, got %v", r.State())
	}
	if !errors.Is(r.Err(), boom) {
		t.Errorf("Expected last raw error, got %v", r.Err())
	}
}

func TestRetrySequence(t *testing.T) {
	rt := attune.NewRuntime()
	var mu sync.Mutex
	var events []string
	var calls int

	retry := RetryOptions{
		MaxRetries: 2,
		OnRetry: func(attempt int, err error) {
			mu.Lock()
			events = append(events, "retry "+err.Error())
			mu.Unlock()
			if attempt < 1 || attempt > 2 {
				t.Errorf("Unexpected attempt number %d", attempt)
			}
		},
	}
	New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		mu.Lock()
		calls++
		n := calls
		events = append(events, "attempt")
		mu.Unlock()
		if n < 3 {
			return "", errors.New("e")
		}
		return "ok", nil
	}, WithSync[string](), WithRetry[string](retry))

	want := []string{"attempt", "retry e", "attempt", "retry e", "attempt"}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d: expected %q, got %q", i, want[i], events[i])
		}
	}
}

func TestRetryBackoffWaitsOnClock(t *testing.T) {
	rt := attune.NewRuntime()
	clock := clockz.NewFakeClock()
	attempts := make(chan int32, 4)
	var calls atomic.Int32

	r := New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		n := calls.Add(1)
		attempts <- n
		if n == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, WithClock[string](clock), WithRetry[string](RetryOptions{MaxRetries: 2, Delay: 100 * time.Millisecond}))

	<-attempts

	// Let the fetch goroutine park on the backoff timer, then fire it.
	time.Sleep(10 * time.Millisecond)
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()

	select {
	case <-attempts:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for retry attempt after clock advance")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := r.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != "ok" || calls.Load() != 2 {
		t.Errorf("Expected 'ok' after 2 attempts, got %q after %d", v, calls.Load())
	}
}

func TestDisposeCancelsInFlight(t *testing.T) {
	rt := attune.NewRuntime()
	entered := make(chan struct{})
	canceled := make(chan struct{})
	var calls atomic.Int32

	r := New(rt, func(ctx context.Context, _ FetchInfo[string]) (string, error) {
		calls.Add(1)
		close(entered)
		<-ctx.Done()
		close(canceled)
		return "", ctx.Err()
	})
	<-entered

	r.Dispose()
	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for dispose cancellation")
	}

	if _, err := r.Wait(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Expected ErrDisposed, got %v", err)
	}

	r.Refetch()
	r.Mutate("ignored")
	if r.Data() != "" {
		t.Errorf("Expected Mutate after Dispose to be ignored, got %q", r.Data())
	}
	r.Dispose()

	if calls.Load() != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls.Load())
	}
}

func TestSourceDrivenRefetch(t *testing.T) {
	rt := attune.NewRuntime()
	id := attune.NewSignal(rt, "a")
	var mu sync.Mutex
	var fetched []string

	r := NewWithSource(rt, Track(id), func(_ context.Context, src string, _ FetchInfo[string]) (string, error) {
		mu.Lock()
		fetched = append(fetched, src)
		mu.Unlock()
		return "user:" + src, nil
	}, WithSync[string]())

	if r.Data() != "user:a" {
		t.Errorf("Expected initial fetch from source, got %q", r.Data())
	}

	id.Set("b")
	if r.Data() != "user:b" {
		t.Errorf("Expected refetch on source change, got %q", r.Data())
	}
	if r.Latest() != "user:b" {
		t.Errorf("Expected latest to follow, got %q", r.Latest())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fetched) != 2 || fetched[0] != "a" || fetched[1] != "b" {
		t.Errorf("Expected fetches [a b], got %v", fetched)
	}
}

func TestSourceSkipsZeroValues(t *testing.T) {
	rt := attune.NewRuntime()
	id := attune.NewSignal(rt, 0)
	var calls atomic.Int32

	r := NewWithSource(rt, TrackNonZero(id), func(_ context.Context, src int, _ FetchInfo[string]) (string, error) {
		calls.Add(1)
		return "item", nil
	}, WithSync[string]())

	if r.State() != Unresolved {
		t.Errorf("Expected Unresolved with zero source, got %v", r.State())
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no fetch for zero source, got %d", calls.Load())
	}

	id.Set(7)
	if r.State() != Ready || calls.Load() != 1 {
		t.Errorf("Expected fetch once source is set, got %v after %d calls", r.State(), calls.Load())
	}
}

func TestSourceChangeResetsData(t *testing.T) {
	rt := attune.NewRuntime()
	id := attune.NewSignal(rt, "a")
	gate := make(chan struct{})

	// The second fetch blocks, so the Pending reset stays observable.
	r := NewWithSource(rt, Track(id), func(_ context.Context, src string, _ FetchInfo[string]) (string, error) {
		if src != "a" {
			<-gate
		}
		return strings.ToUpper(src), nil
	})
	if _, err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	id.Set("b")
	if r.State() != Pending {
		t.Errorf("Expected Pending after source change, got %v", r.State())
	}
	if r.Data() != "" {
		t.Errorf("Expected data reset on source change, got %q", r.Data())
	}
	if r.Latest() != "A" {
		t.Errorf("Expected latest to survive source change, got %q", r.Latest())
	}

	close(gate)
	v, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != "B" {
		t.Errorf("Expected 'B', got %q", v)
	}
}

func TestOnSuccessAndOnErrorHooks(t *testing.T) {
	rt := attune.NewRuntime()
	var got string
	var gotErr error

	New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		return "payload", nil
	}, WithSync[string](), WithOnSuccess[string](func(v string) { got = v }))
	if got != "payload" {
		t.Errorf("Expected OnSuccess with payload, got %q", got)
	}

	boom := errors.New("fail")
	New(rt, func(_ context.Context, _ FetchInfo[string]) (string, error) {
		return "", boom
	}, WithSync[string](), WithOnError[string](func(err error) { gotErr = err }))
	if !errors.Is(gotErr, boom) {
		t.Errorf("Expected OnError with raw error, got %v", gotErr)
	}
}

func TestRateLimitedFetchCompletes(t *testing.T) {
	rt := attune.NewRuntime()
	var calls atomic.Int32

	fetcher := func(_ context.Context, _ FetchInfo[int]) (int, error) {
		return int(calls.Add(1)), nil
	}
	r := New(rt, fetcher, WithSync[int](), WithRateLimit[int](1000, 1))

	r.Refetch()
	if r.Data() != 2 {
		t.Errorf("Expected 2 fetches through the limiter, got %d", r.Data())
	}
}

func TestDataOrFallback(t *testing.T) {
	rt := attune.NewRuntime()

	ready := New(rt, func(_ context.Context, _ FetchInfo[int]) (int, error) {
		return 5, nil
	}, WithSync[int]())
	if got := ready.DataOr(-1); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}

	errored := New(rt, func(_ context.Context, _ FetchInfo[int]) (int, error) {
		return 0, errors.New("fail")
	}, WithSync[int]())
	if got := errored.DataOr(-1); got != -1 {
		t.Errorf("Expected fallback, got %d", got)
	}
}
