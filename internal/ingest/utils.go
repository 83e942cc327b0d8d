package ingest

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docbatch/constants"
)

// AllowedExt checks if a file extension is in the canonical allow-list.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// DetectMime prefers the canonical type for allowed extensions and falls back to the system table.
func DetectMime(name string) string {
	ext := constants.ExtFromName(name)
	if mt, ok := constants.ExtMimeTypes[ext]; ok {
		return mt
	}
	if ext == "" {
		return "application/octet-stream"
	}
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return constants.NormalizeMime(mt)
	}
	return "application/octet-stream"
}
