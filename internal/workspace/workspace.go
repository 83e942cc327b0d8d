package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/approval"
	"github.com/joseph-ayodele/docbatch/internal/artifact"
	"github.com/joseph-ayodele/docbatch/internal/async"
	"github.com/joseph-ayodele/docbatch/internal/cache"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/core"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/export"
	"github.com/joseph-ayodele/docbatch/internal/ingest"
	"github.com/joseph-ayodele/docbatch/internal/repository"
	"github.com/joseph-ayodele/docbatch/internal/state"
	"github.com/joseph-ayodele/docbatch/internal/templates"
)

// Config tunes a workspace.
type Config struct {
	MaxFileSize     int64
	SkipHidden      bool
	ExtractTimeout  time.Duration
	ApprovalTimeout time.Duration
	// OnProgress and OnApproval are called in addition to the workspace's own bookkeeping.
	OnProgress func(core.Progress)
	OnApproval func(entity.ApprovalRequest)
}

// Deps are the collaborators. Only Extractor is required.
type Deps struct {
	Extractor core.Extractor
	// Approver overrides the workspace gate, e.g. an interactive prompt or approval.Always.
	Approver  core.Approver
	Reports   repository.ReportRepository
	Recent    *cache.Recent
	Sink      artifact.Sink
	Templates *templates.Library
	Logger    *slog.Logger
}

// Workspace wires the state store, engine, approval gate and exporters into one session.
type Workspace struct {
	Store     *state.Store
	Gate      *approval.Gate
	Engine    *core.Engine
	Exporter  *export.Service
	Validator *ingest.Validator
	Loader    ingest.Loader
	Templates *templates.Library

	reports repository.ReportRepository
	recent  *cache.Recent
	sink    artifact.Sink
	queue   *async.RunQueue
	cfg     Config
	logger  *slog.Logger

	stopRecent func()

	mu       sync.Mutex
	progress core.Progress
	lastRun  *async.Result
}

func New(cfg Config, deps Deps) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = int64(constants.DefaultMaxFileSizeMB) * 1024 * 1024
	}
	lib := deps.Templates
	if lib == nil {
		lib = templates.NewLibrary("", logger)
		if err := lib.Load(); err != nil {
			logger.Warn("templates.builtin.failed", "error", err)
		}
	}

	w := &Workspace{
		Store:     state.NewStore(logger),
		Exporter:  export.NewService(logger),
		Validator: ingest.NewValidator(ingest.WithMaxFileSize(cfg.MaxFileSize)),
		Loader:    ingest.NewFSLoader(cfg.MaxFileSize, logger),
		Templates: lib,
		reports:   deps.Reports,
		recent:    deps.Recent,
		sink:      deps.Sink,
		cfg:       cfg,
		logger:    logger,
	}
	w.Gate = approval.NewGate(logger, approval.WithNotify(func(req entity.ApprovalRequest) {
		if cfg.OnApproval != nil {
			cfg.OnApproval(req)
		}
	}))

	var approver core.Approver = w.Gate
	if deps.Approver != nil {
		approver = deps.Approver
	}
	w.Engine = core.NewEngine(w.Store, deps.Extractor, approver, logger,
		core.WithExtractTimeout(cfg.ExtractTimeout),
		core.WithApprovalTimeout(cfg.ApprovalTimeout),
		core.WithProgress(w.onProgress),
	)
	w.queue = async.NewRunQueue(runner{w}, logger, async.WithOnDone(w.onRunDone))
	if w.recent != nil {
		w.stopRecent = w.recent.Watch(w.Store)
	}
	return w
}

// runner adapts Run to async.Runner so queued runs persist their report too.
type runner struct{ w *Workspace }

func (r runner) ProcessFiles(ctx context.Context, prompt string) (*entity.Report, error) {
	return r.w.Run(ctx, prompt)
}

func (w *Workspace) onProgress(p core.Progress) {
	w.mu.Lock()
	w.progress = p
	w.mu.Unlock()
	if w.cfg.OnProgress != nil {
		w.cfg.OnProgress(p)
	}
}

func (w *Workspace) onRunDone(res async.Result) {
	w.mu.Lock()
	w.lastRun = &res
	w.mu.Unlock()
}

// SelectPaths loads files and directories, validates them and replaces the selection with the
// accepted files. Paths that cannot be read are reported as rejected verdicts.
func (w *Workspace) SelectPaths(ctx context.Context, paths []string) ([]entity.ValidationVerdict, error) {
	if w.running() {
		return nil, common.ErrRunInProgress
	}
	var files []entity.SelectedFile
	var verdicts []entity.ValidationVerdict
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			verdicts = append(verdicts, entity.ValidationVerdict{File: entity.FileRef{Name: filepath.Base(p), Path: p}, Reason: err.Error()})
			continue
		}
		if st.IsDir() {
			loaded, failures, _, err := w.Loader.LoadDirectory(ctx, p, w.cfg.SkipHidden)
			if err != nil {
				return nil, err
			}
			for _, f := range failures {
				verdicts = append(verdicts, entity.ValidationVerdict{File: entity.FileRef{Name: filepath.Base(f.Path), Path: f.Path}, Reason: f.Err})
			}
			files = append(files, loaded...)
			continue
		}
		f, err := w.Loader.LoadPath(ctx, p)
		if err != nil {
			verdicts = append(verdicts, entity.ValidationVerdict{File: entity.FileRef{Name: filepath.Base(p), Path: p}, Reason: err.Error()})
			continue
		}
		files = append(files, f)
	}
	selected, err := w.SelectFiles(files)
	if err != nil {
		return nil, err
	}
	return append(verdicts, selected...), nil
}

// SelectFiles validates files and replaces the selection with the accepted ones.
func (w *Workspace) SelectFiles(files []entity.SelectedFile) ([]entity.ValidationVerdict, error) {
	if w.running() {
		return nil, common.ErrRunInProgress
	}
	accepted, verdicts := w.Validator.ValidateAll(files)
	w.Store.SetSelectedFiles(accepted)
	w.logger.Info("workspace.select.ok", "offered", len(files), "accepted", len(accepted))
	return verdicts, nil
}

// SetTemplate activates a template by name or file path; an empty ref clears it.
func (w *Workspace) SetTemplate(ref string) (*entity.Template, error) {
	if w.running() {
		return nil, common.ErrRunInProgress
	}
	tpl, err := w.Templates.Resolve(ref)
	if err != nil {
		return nil, err
	}
	w.Store.SetCurrentTemplate(tpl)
	return tpl, nil
}

// SetOptions updates processing mode and output format; empty values leave a field unchanged.
func (w *Workspace) SetOptions(mode, format string) error {
	if w.running() {
		return common.ErrRunInProgress
	}
	if mode != "" {
		m := constants.ProcessingMode(mode)
		if m != constants.ModeIndividual && m != constants.ModeCombined {
			return fmt.Errorf("%w: unknown processing mode %q", common.ErrInvalidInput, mode)
		}
		w.Store.SetProcessingMode(m)
	}
	if format != "" {
		f := constants.ParseExportFormat(format)
		if !slices.Contains(w.Exporter.Formats(), f) {
			return fmt.Errorf("%q: %w", format, common.ErrUnsupportedFormat)
		}
		w.Store.SetOutputFormat(f)
	}
	return nil
}

// Run processes the selection synchronously and stores the report.
func (w *Workspace) Run(ctx context.Context, prompt string) (*entity.Report, error) {
	rep, err := w.Engine.ProcessFiles(ctx, prompt)
	if err != nil {
		return nil, err
	}
	w.persist(ctx, rep)
	return rep, nil
}

// Submit starts a run in the background and returns immediately.
func (w *Workspace) Submit(ctx context.Context, prompt string) (uuid.UUID, error) {
	if len(w.Store.Snapshot().SelectedFiles) == 0 {
		return uuid.Nil, common.ErrEmptyBatch
	}
	if w.Engine.State() == constants.RunStateRunning {
		return uuid.Nil, common.ErrRunInProgress
	}
	job := async.Job{ID: uuid.New(), Prompt: prompt, TraceID: common.RequestIDFromContext(ctx)}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

func (w *Workspace) persist(ctx context.Context, rep *entity.Report) {
	if w.reports == nil {
		return
	}
	// a cancelled run still gets its partial report saved
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.reports.Save(saveCtx, rep); err != nil {
		w.logger.Error("workspace.report.save_failed", "report_id", rep.ID, "error", err)
	}
}

// Report finds a report by id; uuid.Nil means the latest run of this session.
func (w *Workspace) Report(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	if last := w.Engine.LastReport(); last != nil && (id == uuid.Nil || id == last.ID) {
		return last, nil
	}
	if id == uuid.Nil {
		return nil, common.NewAppError("REPORT_NOT_FOUND", "no run has completed yet", common.ErrNotFound)
	}
	if w.reports == nil {
		return nil, common.NewAppError("REPORT_NOT_FOUND", "report "+id.String()+" not found", common.ErrNotFound)
	}
	return w.reports.Get(ctx, id)
}

// Export serializes a report; an empty format uses the selected output format.
func (w *Workspace) Export(ctx context.Context, id uuid.UUID, format string) (entity.ExportArtifact, error) {
	rep, err := w.Report(ctx, id)
	if err != nil {
		return entity.ExportArtifact{}, err
	}
	f := w.Store.Snapshot().OutputFormat
	if format != "" {
		f = constants.ParseExportFormat(format)
	}
	return w.Exporter.ExportAs(rep, f)
}

// Save exports a report and writes the artifact to the configured sink.
func (w *Workspace) Save(ctx context.Context, id uuid.UUID, format string) (entity.ExportArtifact, string, error) {
	if w.sink == nil {
		return entity.ExportArtifact{}, "", common.NewAppError("NO_SINK", "no artifact sink configured", common.ErrInvalidInput)
	}
	art, err := w.Export(ctx, id, format)
	if err != nil {
		return entity.ExportArtifact{}, "", err
	}
	loc, err := w.sink.Put(ctx, art)
	if err != nil {
		return art, "", err
	}
	return art, loc, nil
}

// History lists stored reports, newest first.
func (w *Workspace) History(ctx context.Context, limit int) ([]entity.ReportSummary, error) {
	if w.reports == nil {
		if last := w.Engine.LastReport(); last != nil {
			return []entity.ReportSummary{last.Summary()}, nil
		}
		return []entity.ReportSummary{}, nil
	}
	return w.reports.List(ctx, limit)
}

// Recent returns the most recently selected file names.
func (w *Workspace) Recent(ctx context.Context) ([]string, error) {
	if w.recent == nil {
		return []string{}, nil
	}
	return w.recent.List(ctx)
}

// Progress is the last progress update of the current or latest run.
func (w *Workspace) Progress() core.Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.progress
}

// LastSubmitted returns the outcome of the latest background run, if any has finished.
func (w *Workspace) LastSubmitted() (async.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastRun == nil {
		return async.Result{}, false
	}
	return *w.lastRun, true
}

// Reset returns the store to its initial state. It is refused while a run is active.
func (w *Workspace) Reset() error {
	if w.running() {
		return common.ErrRunInProgress
	}
	w.Store.Reset()
	w.mu.Lock()
	w.progress = core.Progress{}
	w.mu.Unlock()
	return nil
}

// running is true from Submit until the background run returns, and for the whole of a direct Run.
func (w *Workspace) running() bool {
	return w.Engine.State() == constants.RunStateRunning || w.queue.Busy()
}

// Close stops background work, cancelling a run that outlives ctx.
func (w *Workspace) Close(ctx context.Context) {
	w.queue.Shutdown(ctx)
	if w.stopRecent != nil {
		w.stopRecent()
	}
}

// Cancel stops the background run, if one is active.
func (w *Workspace) Cancel() bool {
	return w.queue.Cancel()
}
