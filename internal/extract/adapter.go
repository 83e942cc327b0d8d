package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/llm"
	"github.com/joseph-ayodele/docbatch/internal/textextract"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, f entity.SelectedFile) (textextract.Result, error)
}

// Adapter runs text extraction and then the model for one file.
type Adapter struct {
	text   TextExtractor
	model  llm.DataExtractor
	logger *slog.Logger
	now    func() time.Time
}

func NewAdapter(text TextExtractor, model llm.DataExtractor, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{text: text, model: model, logger: logger, now: time.Now}
}

// Process implements core.Extractor. Every failure wraps common.ErrExtraction.
func (a *Adapter) Process(ctx context.Context, file entity.SelectedFile, prompt string, tpl *entity.Template) (entity.ExtractionResult, error) {
	start := a.now()

	tx, err := a.text.Extract(ctx, file)
	if err != nil {
		return entity.ExtractionResult{}, fmt.Errorf("%w: read %s: %v", common.ErrExtraction, file.Name, err)
	}
	if strings.TrimSpace(tx.Text) == "" {
		return entity.ExtractionResult{}, fmt.Errorf("%w: no text found in %s", common.ErrExtraction, file.Name)
	}

	req := llm.ExtractRequest{Prompt: prompt, FileName: file.Name, Content: tx.Text}
	if tpl != nil {
		req.Template = RenderTemplate(tpl)
		req.TemplateFields = append([]string(nil), tpl.Fields...)
	}

	data, _, err := a.model.ExtractData(ctx, req)
	if err != nil {
		return entity.ExtractionResult{}, fmt.Errorf("%w: %s: %v", common.ErrExtraction, file.Name, err)
	}

	res := entity.ExtractionResult{
		FileName:    file.Name,
		Content:     tx.Text,
		Data:        data.Data,
		Summary:     data.Summary,
		Confidence:  data.Confidence,
		Notes:       data.Notes,
		Model:       a.model.Model(),
		ProcessedAt: a.now().UTC(),
	}
	a.logger.Info("extract.file.ok",
		"file", file.Name,
		"method", tx.Method,
		"rows", len(res.Data),
		"elapsed_ms", a.now().Sub(start).Milliseconds(),
	)
	return res, nil
}

// RenderTemplate writes a template as the header line of its fields plus any instructions.
func RenderTemplate(t *entity.Template) string {
	var parts []string
	if len(t.Fields) > 0 {
		parts = append(parts, strings.Join(t.Fields, ","))
	}
	if s := strings.TrimSpace(t.Instructions); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return t.Name
	}
	return strings.Join(parts, "\n")
}
