// Package pool implements the bounded-concurrency executor that fans chunks
// out to the TTS backend. It enforces the parallelism limit, applies the
// retry policy to transient failures, and reports per-chunk outcomes without
// any completion-order guarantee.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JuanFKurucz/book-reader/internal/chunker"
	"github.com/JuanFKurucz/book-reader/internal/observability"
	"github.com/JuanFKurucz/book-reader/internal/resilience"
)

// ProcessFunc performs the work for one chunk: synthesize, write the segment,
// record progress. It must be safe to call concurrently for different chunks.
type ProcessFunc func(ctx context.Context, chunk chunker.Chunk) error

// Result is the outcome for one chunk, tagged with its originating index so
// the caller can restore document order
type Result struct {
	ChunkIndex int
	Err        error // nil on success; the final error after retries otherwise
	Attempts   int   // Number of attempts made
}

// Pool is a bounded-concurrency chunk executor
type Pool struct {
	concurrency  int
	chunkTimeout time.Duration
	retry        *resilience.RetryPolicy
	breaker      *resilience.CircuitBreaker
	isRetryable  resilience.IsRetryableError
	logger       zerolog.Logger
}

// Option customizes a Pool
type Option func(*Pool)

// WithChunkTimeout sets the per-attempt timeout for a single chunk
func WithChunkTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.chunkTimeout = d
	}
}

// WithRetryPolicy sets the retry policy applied to transient failures
func WithRetryPolicy(policy *resilience.RetryPolicy) Option {
	return func(p *Pool) {
		p.retry = policy
	}
}

// WithCircuitBreaker guards every chunk attempt with a circuit breaker.
// A rejected call surfaces as a retryable failure.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(p *Pool) {
		p.breaker = cb
	}
}

// WithLogger sets the pool's logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New creates a pool running at most concurrency chunks in parallel.
// isRetryable decides which process errors are transient; nil retries nothing.
func New(concurrency int, isRetryable resilience.IsRetryableError, opts ...Option) (*Pool, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
	}

	p := &Pool{
		concurrency: concurrency,
		retry:       resilience.DefaultRetryPolicy(),
		isRetryable: isRetryable,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run dispatches the chunks and streams results as they complete. The
// returned channel is closed once every chunk has been resolved or the
// context is cancelled; cancelled chunks simply never produce a result, so
// already-completed work stays valid and the run remains resumable.
func (p *Pool) Run(ctx context.Context, chunks []chunker.Chunk, process ProcessFunc) <-chan Result {
	jobs := make(chan chunker.Chunk)
	results := make(chan Result, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, jobs, results, process)
		}()
	}

	go func() {
		defer close(jobs)
		for _, chunk := range chunks {
			select {
			case jobs <- chunk:
			case <-ctx.Done():
				// Queued work is abandoned on cancellation
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// worker consumes chunks until the job channel closes or the context ends
func (p *Pool) worker(ctx context.Context, jobs <-chan chunker.Chunk, results chan<- Result, process ProcessFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-jobs:
			if !ok {
				return
			}
			results <- p.processChunk(ctx, chunk, process)
		}
	}
}

// processChunk runs one chunk through the retry policy
func (p *Pool) processChunk(ctx context.Context, chunk chunker.Chunk, process ProcessFunc) Result {
	attempts := 0

	observability.RecordChunkInFlight(1)
	defer observability.RecordChunkInFlight(-1)

	err := p.retry.Do(ctx, func(ctx context.Context) error {
		attempts++

		attemptCtx := ctx
		if p.chunkTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.chunkTimeout)
			defer cancel()
		}

		if p.breaker != nil {
			return p.breaker.Call(func() error {
				return process(attemptCtx, chunk)
			})
		}
		return process(attemptCtx, chunk)
	}, p.retryable, func(attempt int, err error) {
		observability.RecordTTSRetry()
		p.logger.Warn().Err(err).
			Int("chunk", chunk.Index).
			Int("attempt", attempt).
			Msg("Chunk attempt failed, retrying")
	})

	return Result{ChunkIndex: chunk.Index, Err: err, Attempts: attempts}
}

// retryable classifies an attempt error. An open circuit and a per-attempt
// timeout are transient; whole-run cancellation is not.
func (p *Pool) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if p.isRetryable == nil {
		return false
	}
	return p.isRetryable(err)
}
