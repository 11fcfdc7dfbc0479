// Package parallel runs independent jobs on a bounded set of workers.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Config configures a Pool.
type Config struct {
	// Workers bounds concurrency. Default: NumCPU clamped to [2, 8].
	Workers int
	// Timeout bounds the whole run; 0 means none.
	Timeout time.Duration
	// OnProgress, if set, is called after every job with the number of
	// finished jobs. Calls are serialized.
	OnProgress func(done, total int)
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{Workers: min(max(runtime.NumCPU(), 2), 8)}
}

// WithWorkers returns a copy with n workers.
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// WithTimeout returns a copy with the given run timeout.
func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	return c
}

// WithProgress returns a copy reporting progress to fn.
func (c Config) WithProgress(fn func(done, total int)) Config {
	c.OnProgress = fn
	return c
}

// Result is the outcome of one job.
type Result[T any, R any] struct {
	Input    T
	Value    R
	Err      error
	Duration time.Duration
	// Skipped is set when the context ended before the job was picked up;
	// Err then holds the context error.
	Skipped bool
}

// Metrics summarizes a run.
type Metrics struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
	Slowest   time.Duration
}

// Pool executes a job function over a list of inputs.
type Pool[T any, R any] struct {
	cfg Config

	mu      sync.Mutex
	metrics Metrics
}

// NewPool creates a pool.
func NewPool[T any, R any](cfg Config) *Pool[T, R] {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	return &Pool[T, R]{cfg: cfg}
}

// Run applies fn to every input and returns one result per input, in
// input order. The context is checked before each job starts; a job that
// has started always runs to completion.
func (p *Pool[T, R]) Run(ctx context.Context, inputs []T, fn func(ctx context.Context, in T) (R, error)) []Result[T, R] {
	p.mu.Lock()
	p.metrics = Metrics{Total: len(inputs)}
	p.mu.Unlock()
	if len(inputs) == 0 {
		return nil
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]Result[T, R], len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(p.cfg.Workers, len(inputs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = p.runOne(ctx, inputs[idx], fn)
				p.record(results[idx])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	p.mu.Lock()
	p.metrics.Elapsed = time.Since(start)
	p.mu.Unlock()
	return results
}

func (p *Pool[T, R]) runOne(ctx context.Context, in T, fn func(context.Context, T) (R, error)) Result[T, R] {
	if err := ctx.Err(); err != nil {
		return Result[T, R]{Input: in, Err: err, Skipped: true}
	}
	begin := time.Now()
	v, err := fn(ctx, in)
	return Result[T, R]{Input: in, Value: v, Err: err, Duration: time.Since(begin)}
}

func (p *Pool[T, R]) record(r Result[T, R]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.Skipped:
		p.metrics.Skipped++
	case r.Err != nil:
		p.metrics.Failed++
	default:
		p.metrics.Succeeded++
	}
	p.metrics.Slowest = max(p.metrics.Slowest, r.Duration)

	if p.cfg.OnProgress != nil {
		done := p.metrics.Skipped + p.metrics.Failed + p.metrics.Succeeded
		p.cfg.OnProgress(done, p.metrics.Total)
	}
}

// Metrics returns the metrics of the last run.
func (p *Pool[T, R]) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}
