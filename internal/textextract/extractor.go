package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// ErrUnsupported is returned for file types without a text strategy.
var ErrUnsupported = errors.New("unsupported file type")

// Result is the plain text of one document.
type Result struct {
	Text     string
	Format   string // constants.PDF | SPREADSHEET | DELIMITED | TEXT | WORD
	Method   string // "raw" | "xlsx" | "pdftotext" | "docconv" | "pdf-ocr"
	Pages    int
	Duration time.Duration
	Warnings []string
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftotext.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

// WithPdftotext sets the pdftotext binary; an empty name sends PDFs straight to docconv.
func WithPdftotext(bin string) Option { return func(e *Extractor) { e.pdftotext = bin } }

// Extractor turns a selected file into text, picking a strategy from the file extension.
type Extractor struct {
	runner    Runner
	pdftotext string
	ocr       *OCRConfig
	logger    *slog.Logger
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{pdftotext: "pdftotext", logger: logger}
	e.runner = execRunner{logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract reads f (its raw bytes, or its path when the bytes were not loaded) and returns its text.
func (e *Extractor) Extract(ctx context.Context, f entity.SelectedFile) (Result, error) {
	start := time.Now()
	ext := constants.ExtFromName(f.Name)
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return Result{}, fmt.Errorf("%s: %w", f.Name, ErrUnsupported)
	}
	if ext == "xls" {
		return Result{Format: format}, fmt.Errorf("legacy .xls is not supported, save %s as .xlsx: %w", f.Name, ErrUnsupported)
	}

	var (
		res Result
		err error
	)
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, f)
		if err == nil && e.ocr != nil && strings.TrimSpace(res.Text) == "" {
			e.logger.Info("textextract.ocr.fallback", "file", f.Name, "method", res.Method)
			if ocrRes, ocrErr := e.ocrPDF(ctx, f); ocrErr == nil {
				res = ocrRes
			} else if ctx.Err() != nil {
				err = ctx.Err()
			} else {
				res.Warnings = append(res.Warnings, "ocr: "+ocrErr.Error())
			}
		}
	case constants.WORD:
		res, err = e.extractDocconv(f, constants.ExtMimeTypes[ext])
	case constants.SPREADSHEET:
		var raw []byte
		if raw, err = content(f); err == nil {
			res, err = spreadsheetText(raw)
		}
	default:
		var raw []byte
		if raw, err = content(f); err == nil {
			res = Result{Text: decodeText(raw), Method: "raw", Pages: 1}
		}
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("textextract.failed", "file", f.Name, "format", format, "error", err)
		return res, err
	}
	if strings.TrimSpace(res.Text) == "" {
		res.Warnings = append(res.Warnings, "no text extracted")
	}
	e.logger.Debug("textextract.ok",
		"file", f.Name,
		"method", res.Method,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, f entity.SelectedFile) (Result, error) {
	if f.Path != "" && e.pdftotext != "" {
		// pdftotext -layout -enc UTF-8 -eol unix <path> -
		out, errb, err := e.runner.Run(ctx, e.pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", f.Path, "-")
		if err == nil {
			text := string(out)
			return Result{Text: text, Method: "pdftotext", Pages: 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		e.logger.Warn("textextract.pdftotext.fallback", "file", f.Name, "error", err, "stderr", clip(string(errb), 512))
	}
	return e.extractDocconv(f, constants.ExtMimeTypes["pdf"])
}

func (e *Extractor) extractDocconv(f entity.SelectedFile, mimeType string) (Result, error) {
	raw, err := content(f)
	if err != nil {
		return Result{}, err
	}
	resp, err := docconv.Convert(bytes.NewReader(raw), mimeType, false)
	if err != nil {
		return Result{}, fmt.Errorf("docconv %s: %w", f.Name, err)
	}
	return Result{Text: resp.Body, Method: "docconv", Pages: 1}, nil
}

func content(f entity.SelectedFile) ([]byte, error) {
	if f.RawContent != nil {
		return f.RawContent, nil
	}
	if f.Path == "" {
		return nil, fmt.Errorf("%s: no content loaded and no path", f.Name)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return b, nil
}

// decodeText strips a UTF-8 BOM and replaces invalid sequences.
func decodeText(b []byte) string {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}
