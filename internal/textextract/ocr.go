package textextract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// OCRConfig enables the scanned-PDF fallback: pages are rendered with pdftoppm and read with tesseract
// when the text layer is empty.
type OCRConfig struct {
	Pdftoppm    string // default "pdftoppm"
	Tesseract   string // default "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	DPI         int // default 300
	MaxPages    int // 0 = all pages
}

// WithOCR turns on the scanned-PDF fallback.
func WithOCR(cfg OCRConfig) Option {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return func(e *Extractor) { e.ocr = &cfg }
}

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
)

// normalizeOCR collapses runs of whitespace and ruled lines but keeps line breaks.
func normalizeOCR(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = reMultiBlank.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

func (e *Extractor) ocrPDF(ctx context.Context, f entity.SelectedFile) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "docbatch-ocr-*")
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("textextract.ocr.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	src := f.Path
	if src == "" {
		raw, err := content(f)
		if err != nil {
			return Result{}, err
		}
		src = filepath.Join(tmpDir, "input.pdf")
		if err := os.WriteFile(src, raw, 0o600); err != nil {
			return Result{}, err
		}
	}

	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	prefix := filepath.Join(tmpDir, "page")
	if _, errb, err := e.runner.Run(ctx, e.ocr.Pdftoppm, "-r", strconv.Itoa(e.ocr.DPI), "-png", src, prefix); err != nil {
		return Result{}, fmt.Errorf("pdftoppm: %w: %s", err, clip(string(errb), 256))
	}
	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.ocr.MaxPages > 0 && len(pages) > e.ocr.MaxPages {
		pages = pages[:e.ocr.MaxPages]
	}
	if len(pages) == 0 {
		return Result{}, fmt.Errorf("pdftoppm rendered no pages for %s", f.Name)
	}

	var b strings.Builder
	var warns []string
	for _, img := range pages {
		args := []string{img, "stdout", "-l", e.ocr.Lang}
		if e.ocr.TessdataDir != "" {
			args = append(args, "--tessdata-dir", e.ocr.TessdataDir)
		}
		out, errb, err := e.runner.Run(ctx, e.ocr.Tesseract, args...)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			warns = append(warns, fmt.Sprintf("%s: %v %s", filepath.Base(img), err, clip(string(errb), 128)))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(normalizeOCR(string(out)))
	}
	return Result{Text: b.String(), Method: "pdf-ocr", Pages: len(pages), Warnings: warns}, nil
}
