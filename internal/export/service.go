package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Adapter serializes a report into one format. Implementations must not mutate the report.
type Adapter interface {
	Format() constants.ExportFormat
	Extension() string
	ContentType() string
	Serialize(r *entity.Report) ([]byte, error)
}

// Service fans a report out to the adapter for the requested format.
type Service struct {
	adapters map[constants.ExportFormat]Adapter
	logger   *slog.Logger
}

// NewService registers the given adapters; with none it registers every built-in format.
func NewService(logger *slog.Logger, adapters ...Adapter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(adapters) == 0 {
		adapters = []Adapter{ExcelAdapter{}, CSVAdapter{}, PDFAdapter{}, JSONAdapter{}, TextAdapter{}}
	}
	s := &Service{adapters: make(map[constants.ExportFormat]Adapter, len(adapters)), logger: logger}
	for _, a := range adapters {
		s.adapters[a.Format()] = a
	}
	return s
}

// Formats lists the registered formats in display order.
func (s *Service) Formats() []constants.ExportFormat {
	out := make([]constants.ExportFormat, 0, len(s.adapters))
	for _, f := range constants.ExportFormats {
		if _, ok := s.adapters[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ExportAs produces a fresh artifact for r. An unknown format returns common.ErrUnsupportedFormat.
func (s *Service) ExportAs(r *entity.Report, format constants.ExportFormat) (entity.ExportArtifact, error) {
	a, ok := s.adapters[format]
	if !ok {
		return entity.ExportArtifact{}, fmt.Errorf("%q: %w", format, common.ErrUnsupportedFormat)
	}
	if r == nil {
		return entity.ExportArtifact{}, common.NewAppError("EXPORT_ERROR", "report is required", common.ErrInvalidInput)
	}

	start := time.Now()
	data, err := a.Serialize(r.Clone())
	if err != nil {
		s.logger.Error("export.failed", "format", format, "report_id", r.ID, "error", err)
		return entity.ExportArtifact{}, fmt.Errorf("%s write: %w", format, err)
	}

	art := entity.ExportArtifact{
		Format:      format,
		ContentType: a.ContentType(),
		Filename:    SuggestedFilename(r, a.Extension()),
		Data:        data,
	}
	s.logger.Info("export."+string(format)+".ok",
		"report_id", r.ID,
		"items", len(r.Items),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return art, nil
}

// SuggestedFilename names an artifact after the report's generation time.
func SuggestedFilename(r *entity.Report, ext string) string {
	return fmt.Sprintf("processed-files-%s.%s", r.GeneratedAt.UTC().Format("20060102-150405"), ext)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
