package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/medscan/internal/common"
)

// ProcessorQueue is a bounded channel drained by a fixed set of workers.
// Every job yields exactly one Result; callers must drain Results until it
// is closed, which happens once Shutdown has let the workers finish.
type ProcessorQueue struct {
	proc     FileProcessor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	limiter  *rate.Limiter
	observer Observer

	ch      chan Job
	results chan Result
	wg      sync.WaitGroup
	once    sync.Once

	// cancels in-flight jobs when Shutdown gives up waiting
	base   context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
			q.results = make(chan Result, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRateLimit caps how many jobs start per second across all workers.
// OCR shells out to tesseract, so this bounds subprocess churn.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(q *ProcessorQueue) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			q.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithObserver(o Observer) Option {
	return func(q *ProcessorQueue) { q.observer = o }
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		results: make(chan Result, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
		go func() {
			q.wg.Wait()
			close(q.results)
		}()
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("worker started", "worker_id", workerID)

	for job := range q.ch {
		q.results <- q.run(workerID, job)
	}

	q.logger.Debug("worker stopped", "worker_id", workerID)
}

func (q *ProcessorQueue) run(workerID int, job Job) Result {
	res := Result{Job: job, WorkerID: workerID}
	if q.limiter != nil {
		if err := q.limiter.Wait(q.base); err != nil {
			res.Err = err
			return res
		}
	}
	if q.observer != nil {
		q.observer.JobStarted()
		defer q.observer.JobFinished()
	}

	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	start := time.Now()
	res.Outcome, res.Err = q.proc.ProcessFile(ctx, job.Path, job.Kind)
	res.Duration = time.Since(start)

	if res.Err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", res.Err)
	} else {
		q.logger.Info("processed file successfully", "worker_id", workerID, "path", job.Path, "elapsed_ms", res.Duration.Milliseconds())
	}
	return res
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Path, "kind", job.Kind)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Results() <-chan Result { return q.results }

// Shutdown stops intake and waits for queued jobs to finish. If ctx ends
// first, in-flight jobs are cancelled and ctx's error is returned.
func (q *ProcessorQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("shutdown interrupted by context")
		return ctx.Err()
	case <-done:
		q.cancel()
		q.logger.Info("queue drained, shutdown complete")
		return nil
	}
}
