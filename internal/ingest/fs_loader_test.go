package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	writeFile(t, p, "hello")

	f, err := NewFSLoader(0, nil).LoadPath(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, "text/plain", f.MimeType)
	assert.Equal(t, int64(5), f.Size)
	assert.Equal(t, []byte("hello"), f.RawContent)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", f.ContentHash)
}

func TestLoadPathOversizedSkipsContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "big.csv")
	writeFile(t, p, "0123456789")

	f, err := NewFSLoader(4, nil).LoadPath(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.Size)
	assert.Nil(t, f.RawContent)

	v := NewValidator(WithMaxFileSize(4))
	assert.False(t, v.Validate(f).Valid)
}

func TestLoadPathErrors(t *testing.T) {
	dir := t.TempDir()
	l := NewFSLoader(0, nil)

	_, err := l.LoadPath(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	_, err = l.LoadPath(context.Background(), dir)
	assert.ErrorContains(t, err, "is a directory")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "b.csv"), "b,c")
	writeFile(t, filepath.Join(dir, "c.exe"), "x")
	writeFile(t, filepath.Join(dir, ".hidden.txt"), "h")
	writeFile(t, filepath.Join(dir, ".git", "config.txt"), "g")
	writeFile(t, filepath.Join(dir, "sub", "d.pdf"), "%PDF")

	files, failures, stats, err := NewFSLoader(0, nil).LoadDirectory(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Empty(t, failures)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.csv", "d.pdf"}, names)
	assert.Equal(t, uint32(3), stats.Loaded)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Skipped)
}

func TestLoadDirectoryRequiresRoot(t *testing.T) {
	_, _, _, err := NewFSLoader(0, nil).LoadDirectory(context.Background(), "  ", true)
	assert.Error(t, err)
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMime("x.PDF"))
	assert.Equal(t, "application/octet-stream", DetectMime("noext"))
	assert.True(t, IsHidden("/tmp/.env"))
	assert.False(t, IsHidden("/tmp/env"))
}
