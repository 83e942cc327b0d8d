// Package commands implements the docbatch command tree.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/ui"
	"github.com/joseph-ayodele/docbatch/internal/bootstrap"
	"github.com/joseph-ayodele/docbatch/internal/common"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:           "docbatch",
	Short:         "Batch document extraction with an LLM",
	Long:          "docbatch runs one prompt over a batch of documents, one file at a time, and exports the combined results.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init(noColor)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (overrides DOCBATCH_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Error("%v", err)
	}
	return err
}

// loadConfig resolves configuration and the process logger. Logs go to stderr so stdout stays
// readable.
func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfgFile != "" {
		if err := cfg.LoadFile(cfgFile); err != nil {
			return nil, nil, err
		}
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	logger := common.NewLogger(level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openApp builds the local application. Commands that never call the model pass a stub extractor
// so no API key is required.
func openApp(ctx context.Context, opts bootstrap.Options, needModel bool) (*bootstrap.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if needModel {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else if opts.Extractor == nil {
		opts.Extractor = noModel{}
	}
	return bootstrap.Build(ctx, cfg, logger, opts)
}
