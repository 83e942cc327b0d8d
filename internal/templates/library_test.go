package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docbatch/internal/common"
)

func writeXLSX(t *testing.T, path string, header []any) {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestLoadBuiltins(t *testing.T) {
	l := NewLibrary("", nil)
	require.NoError(t, l.Load())

	inv, err := l.Get("Invoice")
	require.NoError(t, err)
	assert.Equal(t, "builtin", inv.Source)
	assert.Contains(t, inv.Fields, "Total")

	_, err = l.Get("nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte("name: people\nfields: [Name, Age]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "many.yml"), []byte("- name: a\n- name: invoice\n  fields: [Only]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("fields: [x]\n"), 0o644))
	writeXLSX(t, filepath.Join(dir, "budget.xlsx"), []any{"Category", " ", "Amount"})

	l := NewLibrary(dir, nil)
	require.NoError(t, l.Load())

	people, err := l.Get("people")
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Age"}, people.Fields)

	inv, err := l.Get("invoice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Only"}, inv.Fields, "directory overrides builtin")

	budget, err := l.Get("budget")
	require.NoError(t, err)
	assert.Equal(t, []string{"Category", "Amount"}, budget.Fields)

	names := []string{}
	for _, tpl := range l.List() {
		names = append(names, tpl.Name)
	}
	assert.IsIncreasing(t, names)
	assert.NotContains(t, names, "")
}

func TestLoadMissingDir(t *testing.T) {
	l := NewLibrary(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, l.Load())
	assert.NotEmpty(t, l.List())
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.xlsx")
	writeXLSX(t, path, []any{"Col A", "Col B"})

	l := NewLibrary("", nil)
	require.NoError(t, l.Load())

	tpl, err := l.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", tpl.Name)

	tpl, err = l.Resolve("contacts")
	require.NoError(t, err)
	assert.Equal(t, "contacts", tpl.Name)

	tpl, err = l.Resolve("")
	require.NoError(t, err)
	assert.Nil(t, tpl)

	_, err = l.Resolve("unknown")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFromXLSXWithoutHeaders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
