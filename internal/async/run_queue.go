package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Runner executes one batch run.
type Runner interface {
	ProcessFiles(ctx context.Context, prompt string) (*entity.Report, error)
}

// RunQueue runs jobs on a single worker and accepts a new job only when the previous one has finished,
// so callers never wait on a run to start one.
type RunQueue struct {
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
	onDone  func(Result)

	base       context.Context
	cancelBase context.CancelFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu        sync.Mutex
	closed    bool
	busy      bool
	cancelRun context.CancelFunc
}

var _ Queue = (*RunQueue)(nil)

type Option func(*RunQueue)

// WithRunTimeout bounds a whole run. Zero leaves runs unbounded.
func WithRunTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback invoked on the worker goroutine after each run.
func WithOnDone(fn func(Result)) Option {
	return func(q *RunQueue) { q.onDone = fn }
}

func NewRunQueue(runner Runner, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		runner: runner,
		logger: logger,
		ch:     make(chan Job, 1),
	}
	q.base, q.cancelBase = context.WithCancel(context.Background())
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("worker started")
			for job := range q.ch {
				q.run(job)
			}
			q.logger.Info("worker stopped")
		}()
	})
}

func (q *RunQueue) run(job Job) {
	ctx, cancel := common.WithOptionalTimeout(q.base, q.timeout)
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	q.mu.Lock()
	q.cancelRun = cancel
	q.mu.Unlock()

	start := time.Now()
	rep, err := q.runner.ProcessFiles(ctx, job.Prompt)
	cancel()

	if err != nil {
		q.logger.Error("queue.run.failed", "job_id", job.ID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
	} else {
		q.logger.Info("queue.run.ok", "job_id", job.ID, "report_id", rep.ID, "outcome", rep.Outcome,
			"elapsed_ms", time.Since(start).Milliseconds())
	}

	q.mu.Lock()
	q.busy = false
	q.cancelRun = nil
	q.mu.Unlock()

	if q.onDone != nil {
		q.onDone(Result{Job: job, Report: rep, Err: err})
	}
}

// Enqueue hands job to the worker. It fails with common.ErrRunInProgress while another job is
// queued or running.
func (q *RunQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return ErrQueueClosed
	}
	if q.busy {
		return common.ErrRunInProgress
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	q.busy = true
	q.ch <- job
	q.logger.Info("queued run", "job_id", job.ID)
	return nil
}

// Busy reports whether a job is queued or running.
func (q *RunQueue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Cancel cancels the running job, if any.
func (q *RunQueue) Cancel() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancelRun == nil {
		return false
	}
	q.cancelRun()
	return true
}

// Shutdown stops accepting jobs and waits for the current one. When ctx expires first the running
// job is cancelled.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context, cancelling run")
		q.cancelBase()
		<-done
	case <-done:
		q.cancelBase()
		q.logger.Info("queue drained, shutdown complete")
	}
}
