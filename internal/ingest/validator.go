package ingest

import (
	"fmt"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Validator gates files by size and type before they enter a run. It performs no I/O.
type Validator struct {
	maxSize int64
}

type ValidatorOption func(*Validator)

// WithMaxFileSize overrides the byte ceiling. Non-positive values are ignored.
func WithMaxFileSize(n int64) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxSize = n
		}
	}
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{maxSize: int64(constants.DefaultMaxFileSizeMB) * 1024 * 1024}
	for _, o := range opts {
		o(v)
	}
	return v
}

// MaxSize returns the configured byte ceiling.
func (v *Validator) MaxSize() int64 { return v.maxSize }

// Validate never fails; every problem is reported through the verdict.
func (v *Validator) Validate(f entity.SelectedFile) entity.ValidationVerdict {
	verdict := entity.ValidationVerdict{File: f.Ref()}

	if f.Size < 0 {
		verdict.Reason = "file size is negative"
		return verdict
	}
	if f.Size > v.maxSize {
		verdict.Reason = fmt.Sprintf("file size %s exceeds limit of %s", humanSize(f.Size), humanSize(v.maxSize))
		return verdict
	}

	ext := constants.ExtFromName(f.Name)
	if ext == "" {
		verdict.Reason = "file has no extension"
		return verdict
	}
	if !AllowedExt(ext) {
		verdict.Reason = fmt.Sprintf("file type .%s is not supported", ext)
		return verdict
	}

	// the declared MIME type is advisory once the extension is allowed

	verdict.Valid = true
	return verdict
}

// ValidateAll keeps accepted files in their original order and returns a verdict for every file.
func (v *Validator) ValidateAll(files []entity.SelectedFile) ([]entity.SelectedFile, []entity.ValidationVerdict) {
	accepted := make([]entity.SelectedFile, 0, len(files))
	verdicts := make([]entity.ValidationVerdict, 0, len(files))
	for _, f := range files {
		verdict := v.Validate(f)
		verdicts = append(verdicts, verdict)
		if verdict.Valid {
			accepted = append(accepted, f)
		}
	}
	return accepted, verdicts
}

func humanSize(n int64) string {
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	if n >= 1024 {
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}
