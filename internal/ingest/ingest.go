package ingest

import (
	"context"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Loaded  uint32
	Skipped uint32
	Failed  uint32
}

// LoadFailure records a path that could not be read.
type LoadFailure struct {
	Path string
	Err  string
}

// Loader turns paths into SelectedFiles.
type Loader interface {
	// LoadPath reads a single file.
	LoadPath(ctx context.Context, path string) (entity.SelectedFile, error)
	// LoadDirectory loads every allowed file under root in walk order.
	LoadDirectory(ctx context.Context, root string, skipHidden bool) ([]entity.SelectedFile, []LoadFailure, DirStats, error)
}
