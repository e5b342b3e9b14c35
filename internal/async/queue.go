// Package async runs documents through the pipeline on a fixed worker pool.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one source document to process.
type Job struct {
	Path        string
	Kind        constants.DocumentKind
	SubmittedAt time.Time
	TraceID     string
}

// Result reports how a Job went. Err is nil on success.
type Result struct {
	Job      Job
	Outcome  pipeline.Outcome
	Err      error
	Duration time.Duration
	WorkerID int
}

// FileProcessor is the work each job runs. *pipeline.Processor satisfies it.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, kind constants.DocumentKind) (pipeline.Outcome, error)
}

// Observer is told when workers pick up and finish jobs.
type Observer interface {
	JobStarted()
	JobFinished()
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Results() <-chan Result
	Shutdown(ctx context.Context) error
}
