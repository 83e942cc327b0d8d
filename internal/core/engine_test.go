package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/approval"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/state"
)

var fixedNow = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

// stubExtractor fails for the file names listed in fail and records every call.
type stubExtractor struct {
	mu     sync.Mutex
	fail   map[string]string
	calls  []string
	block  chan struct{}
	panics map[string]bool
}

func (s *stubExtractor) Process(ctx context.Context, f entity.SelectedFile, prompt string, tpl *entity.Template) (entity.ExtractionResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, f.Name)
	s.mu.Unlock()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return entity.ExtractionResult{}, ctx.Err()
		}
	}
	if s.panics[f.Name] {
		panic("bad parser")
	}
	if msg, ok := s.fail[f.Name]; ok {
		return entity.ExtractionResult{}, errors.New(msg)
	}
	return entity.ExtractionResult{Summary: prompt + ":" + f.Name, Data: []map[string]any{{"file": f.Name}}}, nil
}

func (s *stubExtractor) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func batch(names ...string) []entity.SelectedFile {
	out := make([]entity.SelectedFile, 0, len(names))
	for _, n := range names {
		out = append(out, entity.SelectedFile{Name: n, MimeType: "text/plain", Size: 4, RawContent: []byte("data")})
	}
	return out
}

func newEngine(t *testing.T, ext Extractor, appr Approver, opts ...Option) (*Engine, *state.Store) {
	t.Helper()
	st := state.NewStore(nil)
	st.SetSelectedFiles(batch("1.txt", "2.txt", "3.txt"))
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewEngine(st, ext, appr, nil, opts...), st
}

func statuses(items []entity.ProcessingItem) []constants.ItemStatus {
	out := make([]constants.ItemStatus, len(items))
	for i, it := range items {
		out[i] = it.Status
	}
	return out
}

func TestScenarioAllSucceed(t *testing.T) {
	ext := &stubExtractor{}
	eng, st := newEngine(t, ext, approval.Always(false))

	var progress []Progress
	eng.onProgress = func(p Progress) { progress = append(progress, p) }

	rep, err := eng.ProcessFiles(context.Background(), "extract")
	require.NoError(t, err)

	assert.Equal(t, 3, rep.SuccessCount)
	assert.Equal(t, 0, rep.ErrorCount)
	assert.Equal(t, constants.RunStateCompleted, rep.Outcome)
	assert.Equal(t, constants.RunStateCompleted, eng.State())
	assert.Equal(t, []string{"1.txt", "2.txt", "3.txt"}, ext.Calls())

	snap := st.Snapshot()
	assert.False(t, snap.IsProcessing)
	require.Len(t, snap.Results, 3)
	assert.Equal(t, "extract:1.txt", snap.Results[0].Summary)
	assert.Equal(t, fixedNow, snap.Results[0].ProcessedAt)
	assert.Empty(t, snap.Errors)

	require.Len(t, progress, 4)
	assert.Equal(t, 0.0, progress[0].Percent)
	assert.Equal(t, "Processing 1.txt", progress[0].Label)
	assert.InDelta(t, 66.67, progress[2].Percent, 0.01)
	assert.Equal(t, 100.0, progress[3].Percent)
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i].Percent, progress[i-1].Percent)
	}
}

func TestScenarioFailureApproved(t *testing.T) {
	ext := &stubExtractor{fail: map[string]string{"2.txt": "remote unavailable"}}
	gate := approval.NewGate(nil)
	eng, st := newEngine(t, ext, gate)

	var seen []entity.ApprovalRequest
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Eventually(t, func() bool {
			req, ok := gate.Pending()
			if ok {
				seen = append(seen, req)
			}
			return ok
		}, time.Second, time.Millisecond)
		// the state store already carries the error while the gate is open
		snap := st.Snapshot()
		assert.True(t, snap.IsProcessing)
		assert.Len(t, snap.Errors, 1)
		gate.ResolveApproval(true)
	}()

	rep, err := eng.ProcessFiles(context.Background(), "extract")
	require.NoError(t, err)
	<-done

	assert.Equal(t, constants.RunStateCompleted, eng.State())
	assert.Equal(t, 2, rep.SuccessCount)
	assert.Equal(t, 1, rep.ErrorCount)
	assert.Len(t, rep.Items, 3)
	assert.Equal(t, []constants.ItemStatus{constants.ItemStatusSucceeded, constants.ItemStatusFailed, constants.ItemStatusSucceeded}, statuses(rep.Items))
	require.NotNil(t, rep.Items[1].Error)
	assert.Equal(t, "remote unavailable", rep.Items[1].Error.Message)

	require.Len(t, seen, 1)
	assert.Equal(t, "2.txt", seen[0].FileName)
	assert.Equal(t, rep.Items[1].ID, seen[0].ItemID)
	assert.False(t, st.Snapshot().IsProcessing)
}

func TestScenarioFailureDeclined(t *testing.T) {
	ext := &stubExtractor{fail: map[string]string{"2.txt": "bad content"}}
	var gate *approval.Gate
	gate = approval.NewGate(nil, approval.WithNotify(func(entity.ApprovalRequest) { gate.ResolveApproval(false) }))
	eng, st := newEngine(t, ext, gate)

	rep, err := eng.ProcessFiles(context.Background(), "extract")
	require.NoError(t, err)

	assert.Equal(t, constants.RunStateAborted, eng.State())
	assert.Equal(t, constants.RunStateAborted, rep.Outcome)
	assert.Equal(t, []string{"1.txt", "2.txt"}, ext.Calls())

	items := eng.Items()
	assert.Equal(t, []constants.ItemStatus{constants.ItemStatusSucceeded, constants.ItemStatusFailed, constants.ItemStatusPending}, statuses(items))

	assert.Len(t, rep.Items, 2)
	assert.Equal(t, 3, rep.TotalSelected)
	assert.Equal(t, len(rep.Items), rep.SuccessCount+rep.ErrorCount)

	snap := st.Snapshot()
	assert.False(t, snap.IsProcessing)
	assert.Len(t, snap.Results, 1)
	assert.Len(t, snap.Errors, 1)
	assert.Equal(t, rep, eng.LastReport())
}

func TestEmptyBatch(t *testing.T) {
	st := state.NewStore(nil)
	eng := NewEngine(st, &stubExtractor{}, approval.Always(true), nil)

	calls := 0
	st.Subscribe(func(next, prev state.State) { calls++ })

	rep, err := eng.ProcessFiles(context.Background(), "p")
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, common.ErrEmptyBatch)
	assert.Equal(t, constants.RunStateIdle, eng.State())
	assert.Equal(t, 0, calls)
}

func TestSecondRunWhileRunning(t *testing.T) {
	ext := &stubExtractor{block: make(chan struct{})}
	eng, _ := newEngine(t, ext, approval.Always(true))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := eng.ProcessFiles(context.Background(), "p")
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return eng.State() == constants.RunStateRunning }, time.Second, time.Millisecond)

	_, err := eng.ProcessFiles(context.Background(), "p")
	assert.ErrorIs(t, err, common.ErrRunInProgress)

	close(ext.block)
	<-done
	assert.Equal(t, constants.RunStateCompleted, eng.State())
}

func TestIsProcessingSpansRun(t *testing.T) {
	ext := &stubExtractor{}
	eng, st := newEngine(t, ext, approval.Always(true))

	var flags []bool
	st.Subscribe(func(next, prev state.State) {
		if next.IsProcessing != prev.IsProcessing {
			flags = append(flags, next.IsProcessing)
		}
	})
	_, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, flags)
}

func TestExtractTimeoutIsPerFileFailure(t *testing.T) {
	ext := &stubExtractor{block: make(chan struct{})}
	eng, _ := newEngine(t, ext, approval.Always(true), WithExtractTimeout(10*time.Millisecond))

	rep, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 3, rep.ErrorCount)
	assert.Equal(t, constants.RunStateCompleted, rep.Outcome)
	assert.Contains(t, rep.Items[0].Error.Message, "deadline exceeded")
}

func TestApprovalTimeoutStopsRun(t *testing.T) {
	ext := &stubExtractor{fail: map[string]string{"1.txt": "x"}}
	eng, _ := newEngine(t, ext, approval.NewGate(nil), WithApprovalTimeout(10*time.Millisecond))

	rep, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, constants.RunStateAborted, rep.Outcome)
	assert.Equal(t, []string{"1.txt"}, ext.Calls())
}

func TestPanicIsIsolated(t *testing.T) {
	ext := &stubExtractor{panics: map[string]bool{"1.txt": true}}
	eng, _ := newEngine(t, ext, approval.Always(true))

	rep, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.ErrorCount)
	assert.Equal(t, 2, rep.SuccessCount)
	assert.Contains(t, rep.Items[0].Error.Message, "bad parser")
}

func TestCancelledContextAborts(t *testing.T) {
	ext := &stubExtractor{}
	eng, st := newEngine(t, ext, approval.Always(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := eng.ProcessFiles(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, constants.RunStateAborted, rep.Outcome)
	assert.Empty(t, rep.Items)
	assert.Empty(t, ext.Calls())
	assert.False(t, st.Snapshot().IsProcessing)
}

func TestNewRunSupersedesPrevious(t *testing.T) {
	ext := &stubExtractor{fail: map[string]string{"3.txt": "x"}}
	eng, st := newEngine(t, ext, approval.Always(true))

	first, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)
	second, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.SuccessCount, second.SuccessCount)
	// results and errors are cleared at the start of each run
	snap := st.Snapshot()
	assert.Len(t, snap.Results, 2)
	assert.Len(t, snap.Errors, 1)
}

func TestItemObserverSeesMonotonicTransitions(t *testing.T) {
	ext := &stubExtractor{fail: map[string]string{"2.txt": "x"}}
	seen := map[string][]constants.ItemStatus{}
	eng, _ := newEngine(t, ext, approval.Always(true), WithItemObserver(func(it entity.ProcessingItem) {
		seen[it.File.Name] = append(seen[it.File.Name], it.Status)
	}))

	_, err := eng.ProcessFiles(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []constants.ItemStatus{constants.ItemStatusInFlight, constants.ItemStatusSucceeded}, seen["1.txt"])
	assert.Equal(t, []constants.ItemStatus{constants.ItemStatusInFlight, constants.ItemStatusFailed}, seen["2.txt"])
}
