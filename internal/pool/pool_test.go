package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JuanFKurucz/book-reader/internal/chunker"
	"github.com/JuanFKurucz/book-reader/internal/resilience"
)

func makeChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{Index: i, FirstPage: i + 1, LastPage: i + 1, Text: "text"}
	}
	return chunks
}

func fastRetry(maxAttempts int) *resilience.RetryPolicy {
	return &resilience.RetryPolicy{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	}
}

func collect(results <-chan Result) map[int]Result {
	byIndex := make(map[int]Result)
	for r := range results {
		byIndex[r.ChunkIndex] = r
	}
	return byIndex
}

func TestPool_AllChunksComplete(t *testing.T) {
	p, err := New(3, nil, WithRetryPolicy(fastRetry(1)))
	if err != nil {
		t.Fatal(err)
	}

	results := collect(p.Run(context.Background(), makeChunks(10), func(ctx context.Context, c chunker.Chunk) error {
		return nil
	}))

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	for i := 0; i < 10; i++ {
		r, ok := results[i]
		if !ok {
			t.Errorf("Missing result for chunk %d", i)
			continue
		}
		if r.Err != nil {
			t.Errorf("Chunk %d failed: %v", i, r.Err)
		}
	}
}

func TestPool_ConcurrencyBound(t *testing.T) {
	var inFlight, maxInFlight int64

	p, err := New(2, nil, WithRetryPolicy(fastRetry(1)))
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	results := p.Run(context.Background(), makeChunks(10), func(ctx context.Context, c chunker.Chunk) error {
		current := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if current > maxInFlight {
			maxInFlight = current
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	})

	collect(results)

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight > 2 {
		t.Errorf("Expected at most 2 chunks in flight, observed %d", maxInFlight)
	}
}

func TestPool_PartialFailureIsolation(t *testing.T) {
	p, err := New(4, nil, WithRetryPolicy(fastRetry(1)))
	if err != nil {
		t.Fatal(err)
	}

	invalidInput := errors.New("invalid input")
	results := collect(p.Run(context.Background(), makeChunks(10), func(ctx context.Context, c chunker.Chunk) error {
		if c.Index == 3 {
			return invalidInput
		}
		return nil
	}))

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}

	var failed []int
	for idx, r := range results {
		if r.Err != nil {
			failed = append(failed, idx)
		}
	}
	if len(failed) != 1 || failed[0] != 3 {
		t.Errorf("Expected exactly chunk 3 to fail, got %v", failed)
	}
}

func TestPool_RetriesTransientFailures(t *testing.T) {
	transient := errors.New("rate limited")
	isRetryable := func(err error) bool { return errors.Is(err, transient) }

	var calls int64
	p, err := New(1, isRetryable, WithRetryPolicy(fastRetry(3)))
	if err != nil {
		t.Fatal(err)
	}

	results := collect(p.Run(context.Background(), makeChunks(1), func(ctx context.Context, c chunker.Chunk) error {
		if atomic.AddInt64(&calls, 1) < 3 {
			return transient
		}
		return nil
	}))

	r := results[0]
	if r.Err != nil {
		t.Errorf("Expected success after retries, got %v", r.Err)
	}
	if r.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", r.Attempts)
	}
}

func TestPool_DoesNotRetryPermanentFailures(t *testing.T) {
	permanent := errors.New("invalid input")
	isRetryable := func(err error) bool { return false }

	var calls int64
	p, err := New(1, isRetryable, WithRetryPolicy(fastRetry(5)))
	if err != nil {
		t.Fatal(err)
	}

	results := collect(p.Run(context.Background(), makeChunks(1), func(ctx context.Context, c chunker.Chunk) error {
		atomic.AddInt64(&calls, 1)
		return permanent
	}))

	if results[0].Err == nil {
		t.Error("Expected permanent failure to surface")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for permanent failure, got %d", calls)
	}
}

func TestPool_RetryExhaustionBecomesPermanent(t *testing.T) {
	transient := errors.New("service unavailable")
	isRetryable := func(err error) bool { return true }

	p, err := New(1, isRetryable, WithRetryPolicy(fastRetry(3)))
	if err != nil {
		t.Fatal(err)
	}

	results := collect(p.Run(context.Background(), makeChunks(1), func(ctx context.Context, c chunker.Chunk) error {
		return transient
	}))

	r := results[0]
	if !errors.Is(r.Err, transient) {
		t.Errorf("Expected exhausted transient error, got %v", r.Err)
	}
	if r.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", r.Attempts)
	}
}

func TestPool_CancellationPreservesCompletedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var completed int64

	p, err := New(1, nil, WithRetryPolicy(fastRetry(1)))
	if err != nil {
		t.Fatal(err)
	}

	results := p.Run(ctx, makeChunks(5), func(ctx context.Context, c chunker.Chunk) error {
		if c.Index == 0 {
			atomic.AddInt64(&completed, 1)
			return nil
		}
		// Later chunks block until the run is cancelled
		<-release
		return ctx.Err()
	})

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	resolved := collect(results)

	if r, ok := resolved[0]; !ok || r.Err != nil {
		t.Error("Expected chunk 0 to complete before cancellation")
	}
	// Not all chunks get a result after cancellation
	if len(resolved) == 5 {
		succeeded := 0
		for _, r := range resolved {
			if r.Err == nil {
				succeeded++
			}
		}
		if succeeded == 5 {
			t.Error("Expected cancellation to abandon queued chunks")
		}
	}
}

func TestPool_CircuitBreakerOpenIsRetryable(t *testing.T) {
	cb := resilience.NewCircuitBreaker("tts", 1, time.Hour)
	// Prime the breaker open
	cb.Call(func() error { return errors.New("down") })

	var calls int64
	p, err := New(1, nil, WithRetryPolicy(fastRetry(2)), WithCircuitBreaker(cb))
	if err != nil {
		t.Fatal(err)
	}

	results := collect(p.Run(context.Background(), makeChunks(1), func(ctx context.Context, c chunker.Chunk) error {
		atomic.AddInt64(&calls, 1)
		return nil
	}))

	// The breaker rejects both attempts without invoking the process function
	if calls != 0 {
		t.Errorf("Expected no process calls through open breaker, got %d", calls)
	}
	if !errors.Is(results[0].Err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", results[0].Err)
	}
	if results[0].Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", results[0].Attempts)
	}
}

func TestNew_InvalidConcurrency(t *testing.T) {
	if _, err := New(0, nil); err == nil {
		t.Error("Expected error for zero concurrency")
	}
	if _, err := New(-2, nil); err == nil {
		t.Error("Expected error for negative concurrency")
	}
}
