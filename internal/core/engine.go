package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/report"
	"github.com/joseph-ayodele/docbatch/internal/state"
)

// Extractor turns one file into an extraction result. Errors are per-file and never end the run.
type Extractor interface {
	Process(ctx context.Context, file entity.SelectedFile, prompt string, tpl *entity.Template) (entity.ExtractionResult, error)
}

// Approver decides whether a run continues after a failed item.
type Approver interface {
	RequestApproval(ctx context.Context, req entity.ApprovalRequest) (bool, error)
}

// Progress is published once per file before its extraction starts, and once more when a run completes.
type Progress struct {
	RunID    uuid.UUID
	Index    int
	Total    int
	Percent  float64
	Label    string
	FileName string
}

// Engine walks the selected files strictly in order, one at a time.
type Engine struct {
	logger    *slog.Logger
	store     *state.Store
	extractor Extractor
	approver  Approver

	extractTimeout  time.Duration
	approvalTimeout time.Duration
	onProgress      func(Progress)
	onItem          func(entity.ProcessingItem)
	now             func() time.Time

	mu       sync.Mutex
	runState constants.RunState
	runID    uuid.UUID
	items    []entity.ProcessingItem
	last     *entity.Report
}

type Option func(*Engine)

// WithExtractTimeout bounds each extraction call. Zero leaves it unbounded.
func WithExtractTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.extractTimeout = d
		}
	}
}

// WithApprovalTimeout bounds each approval wait; an expired wait counts as "stop". Zero waits indefinitely.
func WithApprovalTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.approvalTimeout = d
		}
	}
}

func WithProgress(fn func(Progress)) Option {
	return func(e *Engine) { e.onProgress = fn }
}

// WithItemObserver is called with a copy of an item after each status change.
func WithItemObserver(fn func(entity.ProcessingItem)) Option {
	return func(e *Engine) { e.onItem = fn }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(store *state.Store, extractor Extractor, approver Approver, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger:    logger,
		store:     store,
		extractor: extractor,
		approver:  approver,
		now:       time.Now,
		runState:  constants.RunStateIdle,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ProcessFiles runs the current selection with prompt and returns the report of the run. Only usage
// errors are returned: common.ErrEmptyBatch when nothing is selected and common.ErrRunInProgress when
// another run is active. A declined approval still yields the partial report.
func (e *Engine) ProcessFiles(ctx context.Context, prompt string) (*entity.Report, error) {
	snap := e.store.Snapshot()
	files := snap.SelectedFiles
	if len(files) == 0 {
		return nil, common.ErrEmptyBatch
	}

	e.mu.Lock()
	if e.runState == constants.RunStateRunning {
		e.mu.Unlock()
		return nil, common.ErrRunInProgress
	}
	runID := uuid.New()
	items := make([]entity.ProcessingItem, len(files))
	for i, f := range files {
		items[i] = entity.ProcessingItem{ID: uuid.New(), File: f.Ref(), Status: constants.ItemStatusPending}
	}
	e.runState = constants.RunStateRunning
	e.runID = runID
	e.items = items
	e.mu.Unlock()

	ctx = common.WithRunID(ctx, runID.String())
	tpl := snap.CurrentTemplate
	tplName := ""
	if tpl != nil {
		tplName = tpl.Name
	}

	e.store.ClearResults()
	e.store.ClearErrors()
	e.store.SetProcessingState(true)
	defer e.store.SetProcessingState(false)

	start := time.Now()
	e.logger.Info("engine.run.start", "run_id", runID, "files", len(files), "template", tplName)

	total := len(files)
	outcome := constants.RunStateCompleted
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("engine.run.cancelled", "run_id", runID, "next_file", f.Name, "error", err)
			outcome = constants.RunStateAborted
			break
		}

		e.transition(i, constants.ItemStatusInFlight, nil, nil)
		e.publish(Progress{
			RunID:    runID,
			Index:    i,
			Total:    total,
			Percent:  float64(i) / float64(total) * 100,
			Label:    "Processing " + f.Name,
			FileName: f.Name,
		})

		res, err := e.extract(ctx, f, prompt, tpl)
		if err == nil {
			if res.FileName == "" {
				res.FileName = f.Name
			}
			if res.ProcessedAt.IsZero() {
				res.ProcessedAt = e.now().UTC()
			}
			e.store.AddResult(res)
			e.transition(i, constants.ItemStatusSucceeded, &res, nil)
			e.logger.Info("engine.item.ok", "run_id", runID, "file", f.Name, "rows", len(res.Data))
			continue
		}

		rec := entity.ErrorRecord{FileName: f.Name, Message: err.Error(), Timestamp: e.now().UTC()}
		e.store.AddError(rec)
		e.transition(i, constants.ItemStatusFailed, nil, &rec)
		e.logger.Error("engine.item.failed", "run_id", runID, "file", f.Name, "error", err)

		if !e.askToContinue(ctx, items[i].ID, rec) {
			outcome = constants.RunStateAborted
			e.logger.Warn("engine.run.stopped_by_user", "run_id", runID, "after_file", f.Name, "remaining", total-i-1)
			break
		}
	}

	if outcome == constants.RunStateCompleted {
		e.publish(Progress{RunID: runID, Index: total, Total: total, Percent: 100, Label: "Completed"})
	}

	rep := report.Aggregate(report.Input{
		RunID:         runID,
		Prompt:        prompt,
		Template:      tplName,
		Outcome:       outcome,
		Items:         e.Items(),
		TotalSelected: total,
		GeneratedAt:   e.now(),
	})

	e.mu.Lock()
	e.runState = outcome
	e.last = rep
	e.mu.Unlock()

	e.logger.Info("engine.run.done",
		"run_id", runID,
		"outcome", outcome,
		"succeeded", rep.SuccessCount,
		"failed", rep.ErrorCount,
		"total", total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rep.Clone(), nil
}

// extract calls the extractor with the configured timeout and turns a panic into a per-file error.
func (e *Engine) extract(ctx context.Context, f entity.SelectedFile, prompt string, tpl *entity.Template) (res entity.ExtractionResult, err error) {
	ctx, cancel := common.WithOptionalTimeout(ctx, e.extractTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return e.extractor.Process(ctx, f, prompt, tpl)
}

func (e *Engine) askToContinue(ctx context.Context, itemID uuid.UUID, rec entity.ErrorRecord) bool {
	if e.approver == nil {
		return false
	}
	ctx, cancel := common.WithOptionalTimeout(ctx, e.approvalTimeout)
	defer cancel()

	approved, err := e.approver.RequestApproval(ctx, entity.ApprovalRequest{
		ItemID:       itemID,
		FileName:     rec.FileName,
		ErrorMessage: rec.Message,
		RequestedAt:  e.now().UTC(),
	})
	if err != nil {
		e.logger.Warn("engine.approval.failed", "file", rec.FileName, "error", err)
		return false
	}
	return approved
}

func (e *Engine) transition(i int, next constants.ItemStatus, res *entity.ExtractionResult, rec *entity.ErrorRecord) {
	e.mu.Lock()
	it := &e.items[i]
	if !it.Status.CanTransition(next) {
		e.mu.Unlock()
		e.logger.Error("engine.item.bad_transition", "file", it.File.Name, "from", it.Status, "to", next)
		return
	}
	it.Status = next
	if res != nil {
		r := res.Clone()
		it.Result = &r
	}
	if rec != nil {
		er := *rec
		it.Error = &er
	}
	snapshot := it.Clone()
	e.mu.Unlock()

	if e.onItem != nil {
		e.onItem(snapshot)
	}
}

func (e *Engine) publish(p Progress) {
	e.logger.Debug("engine.progress", "run_id", p.RunID, "percent", p.Percent, "label", p.Label)
	if e.onProgress != nil {
		e.onProgress(p)
	}
}

// State returns the run state of the most recent run.
func (e *Engine) State() constants.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runState
}

// RunID returns the ID of the most recent run, or uuid.Nil.
func (e *Engine) RunID() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Items returns a copy of the current run's items, including those still pending.
func (e *Engine) Items() []entity.ProcessingItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]entity.ProcessingItem, len(e.items))
	for i, it := range e.items {
		out[i] = it.Clone()
	}
	return out
}

// LastReport returns a copy of the report of the most recent finished run.
func (e *Engine) LastReport() *entity.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.Clone()
}
