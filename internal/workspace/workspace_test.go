package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/approval"
	"github.com/joseph-ayodele/docbatch/internal/artifact"
	"github.com/joseph-ayodele/docbatch/internal/cache"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/repository"
)

type fakeExtractor struct {
	fail  map[string]bool
	block chan struct{}
}

func (f *fakeExtractor) Process(ctx context.Context, file entity.SelectedFile, prompt string, _ *entity.Template) (entity.ExtractionResult, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return entity.ExtractionResult{}, ctx.Err()
		}
	}
	if f.fail[file.Name] {
		return entity.ExtractionResult{}, errors.New("unreadable")
	}
	return entity.ExtractionResult{Summary: prompt, Data: []map[string]any{{"name": file.Name}}}, nil
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("hello "+n), 0o644))
	}
	return dir
}

func openRepo(t *testing.T) repository.ReportRepository {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: "file:" + filepath.Join(t.TempDir(), "ws.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))
	return repository.NewReportRepository(db, nil)
}

func TestSelectPathsValidatesAndLoads(t *testing.T) {
	dir := writeFiles(t, "a.txt", "b.csv", "c.exe")
	w := New(Config{}, Deps{Extractor: &fakeExtractor{}})
	defer w.Close(context.Background())

	verdicts, err := w.SelectPaths(context.Background(), []string{dir, filepath.Join(dir, "missing.pdf")})
	require.NoError(t, err)

	names := []string{}
	for _, f := range w.Store.Snapshot().SelectedFiles {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.csv"}, names)

	var rejected []string
	for _, v := range verdicts {
		if !v.Valid {
			rejected = append(rejected, v.File.Name)
		}
	}
	assert.Contains(t, rejected, "missing.pdf")
}

func TestSelectFilesRejectsOversize(t *testing.T) {
	w := New(Config{MaxFileSize: 4}, Deps{Extractor: &fakeExtractor{}})
	defer w.Close(context.Background())

	verdicts, err := w.SelectFiles([]entity.SelectedFile{
		{Name: "ok.txt", Size: 3, RawContent: []byte("abc")},
		{Name: "big.txt", Size: 10, RawContent: []byte("0123456789")},
	})
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.True(t, verdicts[0].Valid)
	assert.False(t, verdicts[1].Valid)
	require.Len(t, w.Store.Snapshot().SelectedFiles, 1)
}

func TestSetOptionsAndTemplate(t *testing.T) {
	w := New(Config{}, Deps{Extractor: &fakeExtractor{}})
	defer w.Close(context.Background())

	require.NoError(t, w.SetOptions("combined", "xlsx"))
	snap := w.Store.Snapshot()
	assert.Equal(t, constants.ModeCombined, snap.ProcessingMode)
	assert.Equal(t, constants.FormatExcel, snap.OutputFormat)

	assert.ErrorIs(t, w.SetOptions("batch", ""), common.ErrInvalidInput)
	assert.ErrorIs(t, w.SetOptions("", "docx"), common.ErrUnsupportedFormat)

	tpl, err := w.SetTemplate("invoice")
	require.NoError(t, err)
	require.NotNil(t, w.Store.Snapshot().CurrentTemplate)
	assert.Equal(t, tpl.Name, w.Store.Snapshot().CurrentTemplate.Name)

	_, err = w.SetTemplate("")
	require.NoError(t, err)
	assert.Nil(t, w.Store.Snapshot().CurrentTemplate)
}

func TestRunPersistsAndExports(t *testing.T) {
	repo := openRepo(t)
	ext := &fakeExtractor{fail: map[string]bool{"b.txt": true}}
	w := New(Config{}, Deps{Extractor: ext, Approver: approval.Always(true), Reports: repo})
	defer w.Close(context.Background())

	w.SelectFiles([]entity.SelectedFile{
		{Name: "a.txt", Size: 1, RawContent: []byte("a")},
		{Name: "b.txt", Size: 1, RawContent: []byte("b")},
	})
	rep, err := w.Run(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.SuccessCount)
	assert.Equal(t, 1, rep.ErrorCount)
	assert.Equal(t, 100.0, w.Progress().Percent)

	stored, err := repo.Get(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, stored.ID)

	art, err := w.Export(context.Background(), uuid.Nil, "")
	require.NoError(t, err)
	assert.Equal(t, constants.FormatText, art.Format)

	art, err = w.Export(context.Background(), rep.ID, "json")
	require.NoError(t, err)
	assert.Contains(t, string(art.Data), rep.ID.String())

	hist, err := w.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "summarize", hist[0].Prompt)
}

func TestReportWithoutRun(t *testing.T) {
	w := New(Config{}, Deps{Extractor: &fakeExtractor{}})
	defer w.Close(context.Background())

	_, err := w.Export(context.Background(), uuid.Nil, "json")
	assert.ErrorIs(t, err, common.ErrNotFound)

	hist, err := w.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestSubmitAndReset(t *testing.T) {
	ext := &fakeExtractor{block: make(chan struct{})}
	w := New(Config{}, Deps{Extractor: ext})
	defer w.Close(context.Background())

	_, err := w.Submit(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrEmptyBatch)

	w.SelectFiles([]entity.SelectedFile{{Name: "a.txt", Size: 1, RawContent: []byte("a")}})
	id, err := w.Submit(context.Background(), "x")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	_, err = w.Submit(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrRunInProgress)
	assert.ErrorIs(t, w.Reset(), common.ErrRunInProgress)

	close(ext.block)
	require.Eventually(t, func() bool {
		_, ok := w.LastSubmitted()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	res, _ := w.LastSubmitted()
	require.NoError(t, res.Err)
	assert.Equal(t, id, res.Job.ID)
	assert.Equal(t, 1, res.Report.SuccessCount)

	require.NoError(t, w.Reset())
	assert.Empty(t, w.Store.Snapshot().SelectedFiles)
}

func TestWritesRefusedWhileRunning(t *testing.T) {
	ext := &fakeExtractor{block: make(chan struct{})}
	w := New(Config{}, Deps{Extractor: ext})
	defer w.Close(context.Background())

	_, err := w.SelectFiles([]entity.SelectedFile{{Name: "a.txt", Size: 1, RawContent: []byte("a")}})
	require.NoError(t, err)
	require.NoError(t, w.SetOptions("individual", "text"))
	_, err = w.Submit(context.Background(), "x")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return w.Store.Snapshot().IsProcessing }, 2*time.Second, 5*time.Millisecond)

	_, err = w.SelectFiles([]entity.SelectedFile{{Name: "z.txt", Size: 1, RawContent: []byte("z")}})
	assert.ErrorIs(t, err, common.ErrRunInProgress)
	_, err = w.SelectPaths(context.Background(), []string{t.TempDir()})
	assert.ErrorIs(t, err, common.ErrRunInProgress)
	_, err = w.SetTemplate("invoice")
	assert.ErrorIs(t, err, common.ErrRunInProgress)
	assert.ErrorIs(t, w.SetOptions("combined", "csv"), common.ErrRunInProgress)

	snap := w.Store.Snapshot()
	require.Len(t, snap.SelectedFiles, 1)
	assert.Equal(t, "a.txt", snap.SelectedFiles[0].Name)
	assert.Nil(t, snap.CurrentTemplate)
	assert.Equal(t, constants.ModeIndividual, snap.ProcessingMode)
	assert.Equal(t, constants.FormatText, snap.OutputFormat)

	close(ext.block)
	require.Eventually(t, func() bool {
		_, ok := w.LastSubmitted()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	_, err = w.SelectFiles([]entity.SelectedFile{{Name: "z.txt", Size: 1, RawContent: []byte("z")}})
	require.NoError(t, err)
	require.NoError(t, w.SetOptions("combined", ""))
}

func TestCombinedModeStillRunsPerFile(t *testing.T) {
	ext := &fakeExtractor{fail: map[string]bool{"b.txt": true}}
	w := New(Config{}, Deps{Extractor: ext, Approver: approval.Always(true)})
	defer w.Close(context.Background())

	require.NoError(t, w.SetOptions("combined", ""))
	_, err := w.SelectFiles([]entity.SelectedFile{
		{Name: "a.txt", Size: 1, RawContent: []byte("a")},
		{Name: "b.txt", Size: 1, RawContent: []byte("b")},
		{Name: "c.txt", Size: 1, RawContent: []byte("c")},
	})
	require.NoError(t, err)

	rep, err := w.Run(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, rep.Items, 3)
	assert.Equal(t, 2, rep.SuccessCount)
	assert.Equal(t, 1, rep.ErrorCount)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		assert.Equal(t, name, rep.Items[i].File.Name)
	}
	assert.Equal(t, constants.ModeCombined, w.Store.Snapshot().ProcessingMode)
}

func TestApprovalThroughGate(t *testing.T) {
	requests := make(chan entity.ApprovalRequest, 1)
	ext := &fakeExtractor{fail: map[string]bool{"a.txt": true}}
	w := New(Config{OnApproval: func(r entity.ApprovalRequest) { requests <- r }}, Deps{Extractor: ext})
	defer w.Close(context.Background())

	w.SelectFiles([]entity.SelectedFile{
		{Name: "a.txt", Size: 1, RawContent: []byte("a")},
		{Name: "b.txt", Size: 1, RawContent: []byte("b")},
	})
	go func() {
		req := <-requests
		assert.Equal(t, "a.txt", req.FileName)
		w.Gate.ResolveApproval(false)
	}()

	rep, err := w.Run(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, constants.RunStateAborted, rep.Outcome)
	assert.Equal(t, 0, rep.SuccessCount)
}

func TestRecentAndSave(t *testing.T) {
	recent := cache.NewRecent(cache.NewMemoryClient("t"), 5, 0, nil)
	out := t.TempDir()
	w := New(Config{}, Deps{
		Extractor: &fakeExtractor{},
		Recent:    recent,
		Sink:      artifact.NewDirSink(out, nil),
	})
	defer w.Close(context.Background())

	w.SelectFiles([]entity.SelectedFile{{Name: "a.txt", Size: 1, RawContent: []byte("a")}})
	names, err := w.Recent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)

	_, err = w.Run(context.Background(), "p")
	require.NoError(t, err)
	art, loc, err := w.Save(context.Background(), uuid.Nil, "csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, art.Filename), loc)
	_, err = os.Stat(loc)
	assert.NoError(t, err)
}
