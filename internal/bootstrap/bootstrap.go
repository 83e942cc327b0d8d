// Package bootstrap assembles a workspace and its backing services from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docbatch/internal/artifact"
	"github.com/joseph-ayodele/docbatch/internal/cache"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/core"
	"github.com/joseph-ayodele/docbatch/internal/entity"
	"github.com/joseph-ayodele/docbatch/internal/extract"
	"github.com/joseph-ayodele/docbatch/internal/llm"
	"github.com/joseph-ayodele/docbatch/internal/llm/gemini"
	"github.com/joseph-ayodele/docbatch/internal/llm/openai"
	"github.com/joseph-ayodele/docbatch/internal/repository"
	"github.com/joseph-ayodele/docbatch/internal/templates"
	"github.com/joseph-ayodele/docbatch/internal/textextract"
	"github.com/joseph-ayodele/docbatch/internal/workspace"
)

// Options are the caller-specific hooks; everything else comes from common.Config.
type Options struct {
	Approver   core.Approver
	OnProgress func(core.Progress)
	OnApproval func(entity.ApprovalRequest)
	// Extractor replaces the configured LLM pipeline.
	Extractor core.Extractor
}

// App owns every resource opened by Build.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Workspace *workspace.Workspace
	DB        *repository.DB
	Model     llm.DataExtractor

	closers []func()
}

// NewModel builds the configured LLM client.
func NewModel(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.DataExtractor, func(), error) {
	switch cfg.Provider {
	case "openai":
		c := openai.NewClient(openai.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			Timeout:         cfg.Timeout,
			MaxContentChars: cfg.MaxContentChars,
		}, logger)
		return c, func() {}, nil
	case "gemini", "":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxContentChars: cfg.MaxContentChars,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("gemini.close.failed", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown llm provider %q", common.ErrInvalidInput, cfg.Provider)
	}
}

// Build opens storage, cache, sink, templates and the extraction pipeline, then wires the workspace.
// Cache and sink failures are logged and leave the feature off; a storage failure is fatal.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.closers = append(app.closers, func() { db.Close(logger) })
	if err := db.Migrate(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}

	extractor := opts.Extractor
	if extractor == nil {
		model, closeModel, err := NewModel(ctx, cfg.LLM, logger)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		app.Model = model
		app.closers = append(app.closers, closeModel)
		var textOpts []textextract.Option
		if cfg.OCR.Enabled {
			textOpts = append(textOpts, textextract.WithOCR(textextract.OCRConfig{
				Lang:        cfg.OCR.Lang,
				TessdataDir: cfg.OCR.TessdataDir,
				DPI:         cfg.OCR.DPI,
				MaxPages:    cfg.OCR.MaxPages,
			}))
		}
		extractor = extract.NewAdapter(textextract.NewExtractor(logger, textOpts...), model, logger)
	}

	var cc cache.Client
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			logger.Warn("cache.redis.unavailable", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			cc = rc
		}
	}
	if cc == nil {
		cc = cache.NewMemoryClient(cfg.Cache.Prefix)
	}
	app.closers = append(app.closers, func() { _ = cc.Close() })

	sink, err := artifact.New(ctx, cfg.Export, logger)
	if err != nil {
		logger.Warn("artifact.sink.unavailable", "sink", cfg.Export.Sink, "error", err)
		sink = nil
	}

	lib := templates.NewLibrary(cfg.Templates.Dir, logger)
	if err := lib.Load(); err != nil {
		logger.Warn("templates.load.failed", "dir", cfg.Templates.Dir, "error", err)
	}

	deps := workspace.Deps{
		Extractor: extractor,
		Approver:  opts.Approver,
		Reports:   repository.NewReportRepository(db, logger),
		Recent:    cache.NewRecent(cc, cfg.Cache.RecentLimit, cfg.Cache.TTL, logger),
		Templates: lib,
		Logger:    logger,
	}
	if sink != nil {
		deps.Sink = sink
	}
	app.Workspace = workspace.New(workspace.Config{
		MaxFileSize:     cfg.MaxFileSizeBytes(),
		SkipHidden:      cfg.Files.SkipHidden,
		ExtractTimeout:  cfg.Engine.ExtractTimeout,
		ApprovalTimeout: cfg.Engine.ApprovalTimeout,
		OnProgress:      opts.OnProgress,
		OnApproval:      opts.OnApproval,
	}, deps)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	if a.Workspace != nil {
		a.Workspace.Close(ctx)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
