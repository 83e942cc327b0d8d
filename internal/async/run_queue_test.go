package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

type blockingRunner struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingRunner) ProcessFiles(ctx context.Context, prompt string) (*entity.Report, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		return &entity.Report{ID: uuid.New(), Prompt: prompt, Outcome: constants.RunStateCompleted}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRunQueueRejectsWhileBusy(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	results := make(chan Result, 2)
	q := NewRunQueue(r, nil, WithOnDone(func(res Result) { results <- res }))
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Job{Prompt: "one"}))
	assert.True(t, q.Busy())
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Prompt: "two"}), common.ErrRunInProgress)

	close(r.release)
	res := <-results
	require.NoError(t, res.Err)
	assert.Equal(t, "one", res.Report.Prompt)
	assert.NotEqual(t, uuid.Nil, res.Job.ID)
	assert.False(t, q.Busy())

	require.NoError(t, q.Enqueue(context.Background(), Job{Prompt: "three"}))
	res = <-results
	assert.Equal(t, "three", res.Report.Prompt)
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestRunQueueCancel(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	results := make(chan Result, 1)
	q := NewRunQueue(r, nil, WithOnDone(func(res Result) { results <- res }))
	defer q.Shutdown(context.Background())

	assert.False(t, q.Cancel())
	require.NoError(t, q.Enqueue(context.Background(), Job{Prompt: "p"}))
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, q.Cancel, time.Second, 5*time.Millisecond)

	res := <-results
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRunQueueTimeout(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	results := make(chan Result, 1)
	q := NewRunQueue(r, nil, WithRunTimeout(20*time.Millisecond), WithOnDone(func(res Result) { results <- res }))
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Job{Prompt: "p"}))
	res := <-results
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestRunQueueShutdown(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	q := NewRunQueue(r, nil)
	require.NoError(t, q.Enqueue(context.Background(), Job{Prompt: "p"}))
	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	q.Shutdown(ctx)

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{}), ErrQueueClosed)
	q.Shutdown(context.Background())
}
