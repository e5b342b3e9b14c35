package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProcessor struct {
	delay   time.Duration
	calls   atomic.Int32
	mu      sync.Mutex
	traceID map[string]string
}

func (f *fakeProcessor) ProcessFile(ctx context.Context, path string, kind constants.DocumentKind) (pipeline.Outcome, error) {
	f.calls.Add(1)
	f.mu.Lock()
	if f.traceID == nil {
		f.traceID = map[string]string{}
	}
	f.traceID[path] = common.RequestIDFromContext(ctx)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return pipeline.Outcome{Path: path}, ctx.Err()
		}
	}
	if path == "bad.pdf" {
		return pipeline.Outcome{Path: path}, errors.New("ocr failed")
	}
	return pipeline.Outcome{Path: path}, nil
}

type countingObserver struct {
	started, finished atomic.Int32
}

func (o *countingObserver) JobStarted()  { o.started.Add(1) }
func (o *countingObserver) JobFinished() { o.finished.Add(1) }

func drain(q Queue) []Result {
	var out []Result
	for r := range q.Results() {
		out = append(out, r)
	}
	return out
}

func TestQueue_ProcessesEveryJob(t *testing.T) {
	proc := &fakeProcessor{}
	obs := &countingObserver{}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(3), WithQueueSize(2), WithObserver(obs))

	var results []Result
	done := make(chan struct{})
	go func() { results = drain(q); close(done) }()

	paths := []string{"a.pdf", "b.jpg", "bad.pdf", "c.txt", "d.png"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p, Kind: constants.KindAuto, TraceID: "trace-" + p}))
	}
	require.NoError(t, q.Shutdown(context.Background()))
	<-done

	require.Len(t, results, len(paths))
	failed := 0
	for _, r := range results {
		assert.False(t, r.Job.SubmittedAt.IsZero())
		assert.NotZero(t, r.WorkerID)
		if r.Err != nil {
			failed++
			assert.Equal(t, "bad.pdf", r.Job.Path)
		}
	}
	assert.Equal(t, 1, failed)
	assert.EqualValues(t, len(paths), proc.calls.Load())
	assert.EqualValues(t, len(paths), obs.started.Load())
	assert.EqualValues(t, len(paths), obs.finished.Load())
	assert.Equal(t, "trace-c.txt", proc.traceID["c.txt"])
}

func TestQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, quietLogger())
	require.NoError(t, q.Shutdown(context.Background()))
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}), ErrQueueClosed)
	assert.Empty(t, drain(q))
	// second shutdown is a no-op
	assert.NoError(t, q.Shutdown(context.Background()))
}

func TestQueue_JobTimeout(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{delay: time.Second}, quietLogger(),
		WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))
	require.NoError(t, q.Shutdown(context.Background()))

	results := drain(q)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestQueue_ShutdownDeadlineCancelsJobs(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{delay: 10 * time.Second}, quietLogger(), WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)

	results := drain(q)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestQueue_EnqueueHonorsContextWhenFull(t *testing.T) {
	proc := &fakeProcessor{delay: time.Second}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1))

	// first job occupies the worker, second fills the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "one.pdf"}))
	require.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "two.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "three.pdf"}), context.DeadlineExceeded)

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer scancel()
	_ = q.Shutdown(sctx)
	assert.Len(t, drain(q), 2)
}

func TestQueue_RateLimit(t *testing.T) {
	proc := &fakeProcessor{}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(4), WithRateLimit(20, 1))

	start := time.Now()
	for _, p := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	require.NoError(t, q.Shutdown(context.Background()))
	results := drain(q)

	require.Len(t, results, 4)
	// burst 1 at 20/s: the fourth job starts no earlier than ~150ms in
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
