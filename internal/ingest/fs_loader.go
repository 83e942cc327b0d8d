package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// FSLoader reads from the local filesystem.
type FSLoader struct {
	// MaxRead caps how many bytes are buffered per file. Larger files are returned with
	// Size set and no content so the validator can reject them without reading them.
	MaxRead int64
	logger  *slog.Logger
}

func NewFSLoader(maxRead int64, logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSLoader{MaxRead: maxRead, logger: logger}
}

func (l *FSLoader) LoadPath(ctx context.Context, path string) (entity.SelectedFile, error) {
	var out entity.SelectedFile
	if err := ctx.Err(); err != nil {
		return out, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	if st.IsDir() {
		return out, fmt.Errorf("%s is a directory", abs)
	}

	out = entity.SelectedFile{
		Name:     filepath.Base(abs),
		Path:     abs,
		MimeType: DetectMime(abs),
		Size:     st.Size(),
	}
	if l.MaxRead > 0 && st.Size() > l.MaxRead {
		l.logger.Debug("ingest.load.oversized", "path", abs, "size", st.Size(), "max", l.MaxRead)
		return out, nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			l.logger.Warn("ingest.load.close_error", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	var buf bytes.Buffer
	buf.Grow(int(st.Size()))
	if _, err := io.Copy(&buf, io.TeeReader(f, h)); err != nil {
		return out, fmt.Errorf("read %s: %w", abs, err)
	}
	out.RawContent = buf.Bytes()
	out.Size = int64(buf.Len())
	out.ContentHash = hex.EncodeToString(h.Sum(nil))
	return out, nil
}

// LoadDirectory walks root, skips hidden entries if requested and loads every file with an allowed
// extension. Per-file read errors are collected rather than aborting the walk.
func (l *FSLoader) LoadDirectory(ctx context.Context, root string, skipHidden bool) ([]entity.SelectedFile, []LoadFailure, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var files []entity.SelectedFile
	var failures []LoadFailure
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			failures = append(failures, LoadFailure{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++

		f, err := l.LoadPath(ctx, path)
		if err != nil {
			failures = append(failures, LoadFailure{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		files = append(files, f)
		stats.Loaded++
		return nil
	})
	if err != nil {
		return files, failures, stats, fmt.Errorf("walk: %w", err)
	}

	l.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return files, failures, stats, nil
}
