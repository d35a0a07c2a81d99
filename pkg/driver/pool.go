package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"
)

// BatchResult is the outcome of one script run by a Pool.
type BatchResult struct {
	Path     string
	Index    int
	WorkerID int
	Stdout   []byte
	Stderr   []byte
	Result   *Result
	Err      error
	Duration time.Duration
}

// PoolStats tracks pool throughput.
type PoolStats struct {
	WorkerCount   int
	TotalJobs     int
	ActiveJobs    int
	CompletedJobs int
	FailedJobs    int
	TotalTime     time.Duration
	AverageTime   time.Duration
}

type batchJob struct {
	path  string
	index int
}

// Pool runs independent scripts in parallel. Each script gets a fresh
// Engine, so scripts share no bindings and no job queues; an engine is only
// ever driven by the worker that created it.
type Pool struct {
	cfg        Config
	numWorkers int
	logger     *slog.Logger

	mu      sync.Mutex // guards sends on jobs against its close
	jobs    chan batchJob
	results chan *BatchResult
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started    atomic.Bool
	stopped    atomic.Bool
	activeJobs atomic.Int32

	stats   PoolStats
	statsMu sync.RWMutex
}

// NewPool creates a pool of numWorkers workers; zero or less means one per
// CPU. A nil logger discards engine logs.
func NewPool(cfg Config, numWorkers int, logger *slog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = goruntime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pool{cfg: cfg, numWorkers: numWorkers, logger: logger}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("pool already started")
	}
	if err := p.cfg.Validate(); err != nil {
		p.started.Store(false)
		return err
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.jobs = make(chan batchJob, p.numWorkers)
	p.results = make(chan *BatchResult, p.numWorkers)
	p.stats = PoolStats{WorkerCount: p.numWorkers}

	for id := 0; id < p.numWorkers; id++ {
		p.wg.Add(1)
		go p.work(id)
	}
	return nil
}

// Submit queues a script. It blocks while every worker is busy.
func (p *Pool) Submit(path string, index int) error {
	if !p.started.Load() {
		return fmt.Errorf("pool not started")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped.Load() {
		return fmt.Errorf("pool stopped")
	}
	p.activeJobs.Add(1)
	select {
	case p.jobs <- batchJob{path: path, index: index}:
		p.statsMu.Lock()
		p.stats.TotalJobs++
		p.statsMu.Unlock()
		return nil
	case <-p.ctx.Done():
		p.activeJobs.Add(-1)
		return p.ctx.Err()
	}
}

// Results is closed after Shutdown once every worker has exited.
func (p *Pool) Results() <-chan *BatchResult {
	return p.results
}

// Shutdown stops accepting scripts and waits for running ones to finish.
// When ctx expires first, running scripts are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.started.Load() {
		return fmt.Errorf("pool not started")
	}
	p.mu.Lock()
	if !p.stopped.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return fmt.Errorf("pool already stopped")
	}
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		close(p.results)
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		close(p.results)
		return ctx.Err()
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	stats := p.stats
	stats.ActiveJobs = int(p.activeJobs.Load())
	return stats
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			res := p.run(id, job)

			p.statsMu.Lock()
			if res.Err == nil {
				p.stats.CompletedJobs++
			} else {
				p.stats.FailedJobs++
			}
			p.stats.TotalTime += res.Duration
			p.stats.AverageTime = p.stats.TotalTime / time.Duration(p.stats.CompletedJobs+p.stats.FailedJobs)
			p.statsMu.Unlock()
			p.activeJobs.Add(-1)

			select {
			case p.results <- res:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) run(id int, job batchJob) *BatchResult {
	start := time.Now()
	res := &BatchResult{Path: job.path, Index: job.index, WorkerID: id}
	var stdout, stderr bytes.Buffer
	logger := p.logger.With("worker", id, "script", job.path)

	engine, err := New(p.cfg,
		WithStdout(&stdout),
		WithStderr(&stderr),
		WithLogger(logger),
		WithArgs([]string{"cadence", job.path}),
	)
	if err != nil {
		res.Err = err
	} else {
		res.Result, res.Err = engine.RunFile(p.ctx, job.path)
		engine.Close()
	}
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.Duration = time.Since(start)
	logger.Debug("script finished", "duration", res.Duration, "failed", res.Err != nil)
	return res
}

// RunBatch runs every path on a pool of workers and returns the results in
// the order of paths.
func RunBatch(ctx context.Context, cfg Config, paths []string, workers int, logger *slog.Logger) ([]*BatchResult, error) {
	pool := NewPool(cfg, workers, logger)
	if err := pool.Start(ctx); err != nil {
		return nil, err
	}

	submitErr := make(chan error, 1)
	go func() {
		var err error
		for i, path := range paths {
			if err = pool.Submit(path, i); err != nil {
				break
			}
		}
		if shutdownErr := pool.Shutdown(ctx); err == nil {
			err = shutdownErr
		}
		submitErr <- err
	}()

	out := make([]*BatchResult, len(paths))
	for res := range pool.Results() {
		out[res.Index] = res
	}
	if err := <-submitErr; err != nil {
		return out, fmt.Errorf("batch: %w", err)
	}
	return out, nil
}
