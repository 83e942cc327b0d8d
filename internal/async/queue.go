package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job asks for one batch run over the current selection.
type Job struct {
	ID          uuid.UUID
	Prompt      string
	SubmittedAt time.Time
	TraceID     string
}

// Result is delivered once per job when its run returns.
type Result struct {
	Job    Job
	Report *entity.Report
	Err    error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
