package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

func sampleFiles() []entity.SelectedFile {
	return []entity.SelectedFile{
		{Name: "a.pdf", MimeType: "application/pdf", Size: 3, RawContent: []byte("abc")},
		{Name: "b.csv", MimeType: "text/csv", Size: 2, RawContent: []byte("x,")},
	}
}

func TestDefaults(t *testing.T) {
	s := NewStore(nil).Snapshot()
	assert.Empty(t, s.SelectedFiles)
	assert.NotNil(t, s.SelectedFiles)
	assert.Nil(t, s.CurrentTemplate)
	assert.Equal(t, constants.ModeIndividual, s.ProcessingMode)
	assert.Equal(t, constants.FormatText, s.OutputFormat)
	assert.False(t, s.IsProcessing)
	assert.Empty(t, s.Results)
	assert.Empty(t, s.Errors)
}

func TestSetSelectedFilesNotifies(t *testing.T) {
	st := NewStore(nil)
	var calls int
	var got State
	st.Subscribe(func(next, prev State) {
		calls++
		got = next
		assert.Empty(t, prev.SelectedFiles)
	})

	st.SetSelectedFiles(sampleFiles())
	require.Equal(t, 1, calls)
	require.Len(t, got.SelectedFiles, 2)
	assert.Equal(t, "a.pdf", got.SelectedFiles[0].Name)
}

func TestNoNotificationWhenUnchanged(t *testing.T) {
	st := NewStore(nil)
	calls := 0
	st.Subscribe(func(next, prev State) { calls++ })

	st.SetProcessingMode(constants.ModeIndividual)
	st.SetOutputFormat(constants.FormatText)
	st.SetProcessingState(false)
	st.ClearResults()
	st.ClearErrors()
	st.SetCurrentTemplate(nil)
	assert.Equal(t, 0, calls)

	st.SetSelectedFiles(sampleFiles())
	st.SetSelectedFiles(sampleFiles())
	assert.Equal(t, 1, calls)

	st.SetProcessingState(true)
	st.SetProcessingState(true)
	assert.Equal(t, 2, calls)
}

func TestAppendOnlyCollections(t *testing.T) {
	st := NewStore(nil)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	st.AddError(entity.ErrorRecord{FileName: "a.pdf", Message: "boom", Timestamp: now})
	st.AddError(entity.ErrorRecord{FileName: "b.pdf", Message: "boom", Timestamp: now})
	st.AddResult(entity.ExtractionResult{FileName: "c.pdf", Summary: "ok"})

	s := st.Snapshot()
	require.Len(t, s.Errors, 2)
	assert.Equal(t, "a.pdf", s.Errors[0].FileName)
	assert.Equal(t, "b.pdf", s.Errors[1].FileName)
	require.Len(t, s.Results, 1)

	st.ClearErrors()
	st.ClearResults()
	s = st.Snapshot()
	assert.Empty(t, s.Errors)
	assert.Empty(t, s.Results)
}

func TestSnapshotIsDefensive(t *testing.T) {
	st := NewStore(nil)
	files := sampleFiles()
	st.SetSelectedFiles(files)
	st.SetCurrentTemplate(&entity.Template{Name: "invoice", Fields: []string{"total"}})
	st.AddResult(entity.ExtractionResult{FileName: "a.pdf", Data: []map[string]any{{"total": 1.5}}})

	// mutating the caller's input does not leak in
	files[0].Name = "changed"
	files[0].RawContent[0] = 'z'

	snap := st.Snapshot()
	snap.SelectedFiles[1].Name = "mutated"
	snap.SelectedFiles = append(snap.SelectedFiles, entity.SelectedFile{Name: "extra"})
	snap.CurrentTemplate.Fields[0] = "mutated"
	snap.Results[0].Data[0]["total"] = 99.0

	again := st.Snapshot()
	require.Len(t, again.SelectedFiles, 2)
	assert.Equal(t, "a.pdf", again.SelectedFiles[0].Name)
	assert.Equal(t, []byte("abc"), again.SelectedFiles[0].RawContent)
	assert.Equal(t, "b.csv", again.SelectedFiles[1].Name)
	assert.Equal(t, "total", again.CurrentTemplate.Fields[0])
	assert.Equal(t, 1.5, again.Results[0].Data[0]["total"])
}

func TestListenerCannotMutateStore(t *testing.T) {
	st := NewStore(nil)
	st.Subscribe(func(next, prev State) {
		if len(next.SelectedFiles) > 0 {
			next.SelectedFiles[0].Name = "listener"
		}
	})
	st.SetSelectedFiles(sampleFiles())
	assert.Equal(t, "a.pdf", st.Snapshot().SelectedFiles[0].Name)
}

func TestUnsubscribe(t *testing.T) {
	st := NewStore(nil)
	var a, b int
	unsubA := st.Subscribe(func(next, prev State) { a++ })
	st.Subscribe(func(next, prev State) { b++ })

	st.SetProcessingState(true)
	unsubA()
	unsubA()
	st.SetProcessingState(false)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestReset(t *testing.T) {
	st := NewStore(nil)
	st.SetSelectedFiles(sampleFiles())
	st.SetCurrentTemplate(&entity.Template{Name: "t"})
	st.SetProcessingMode(constants.ModeCombined)
	st.SetOutputFormat(constants.FormatJSON)
	st.SetProcessingState(true)
	st.AddError(entity.ErrorRecord{FileName: "x"})

	calls := 0
	st.Subscribe(func(next, prev State) { calls++ })
	st.Reset()
	assert.Equal(t, 1, calls)
	assert.Equal(t, Default(), st.Snapshot())

	st.Reset()
	assert.Equal(t, 1, calls)
}

func TestListenersRunInSubscriptionOrder(t *testing.T) {
	st := NewStore(nil)
	var order []string
	st.Subscribe(func(next, prev State) { order = append(order, "first") })
	st.Subscribe(func(next, prev State) { order = append(order, "second") })
	st.SetOutputFormat(constants.FormatCSV)
	assert.Equal(t, []string{"first", "second"}, order)
}
