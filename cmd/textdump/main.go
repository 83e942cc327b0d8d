package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/docbatch/internal/ingest"
	"github.com/joseph-ayodele/docbatch/internal/textextract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ocr := flag.Bool("ocr", false, "OCR PDFs that have no text layer")
	lang := flag.String("lang", "eng", "tesseract language")
	timeout := flag.Duration("timeout", 2*time.Minute, "extraction timeout")
	flag.Parse()
	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "textdump [-ocr] [-lang eng] <file>")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	f, err := ingest.NewFSLoader(0, logger).LoadPath(ctx, flag.Arg(0))
	if err != nil {
		logger.Error("load file", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	var opts []textextract.Option
	if *ocr {
		opts = append(opts, textextract.WithOCR(textextract.OCRConfig{Lang: *lang, TessdataDir: os.Getenv("TESSDATA_PREFIX")}))
	}
	res, err := textextract.NewExtractor(logger, opts...).Extract(ctx, f)
	if err != nil {
		logger.Error("text extraction failed", "file", f.Name, "error", err, "duration_ms", res.Duration.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"file", f.Name,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
