package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/ui"
	"github.com/joseph-ayodele/docbatch/internal/approval"
	"github.com/joseph-ayodele/docbatch/internal/bootstrap"
	"github.com/joseph-ayodele/docbatch/internal/core"
	"github.com/joseph-ayodele/docbatch/internal/report"
)

var (
	processPrompt   string
	processTemplate string
	processFormat   string
	processMode     string
	processYes      bool
	processNoSave   bool
)

var processCmd = &cobra.Command{
	Use:   "process <file|dir>...",
	Short: "Run a prompt over a batch of files",
	Long: `Select files (directories are walked), run the prompt over each one in order and export the report.
When a file fails you are asked whether to continue; --yes continues automatically.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processPrompt, "prompt", "p", "", "instruction applied to every file (required)")
	processCmd.Flags().StringVarP(&processTemplate, "template", "t", "", "template name or file")
	processCmd.Flags().StringVarP(&processFormat, "format", "f", "", "export format: excel, csv, pdf, json, text")
	processCmd.Flags().StringVar(&processMode, "mode", "", "processing mode: individual or combined")
	processCmd.Flags().BoolVarP(&processYes, "yes", "y", false, "continue after failures without asking")
	processCmd.Flags().BoolVar(&processNoSave, "no-save", false, "print the summary only")
	_ = processCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := ui.NewRunProgress()
	var approver core.Approver = ui.NewTerminalApprover(progress)
	if processYes {
		approver = approval.Always(true)
	}
	app, err := openApp(ctx, bootstrap.Options{Approver: approver, OnProgress: progress.Update}, true)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	ws := app.Workspace

	verdicts, err := ws.SelectPaths(ctx, args)
	if err != nil {
		return err
	}
	for _, v := range verdicts {
		if !v.Valid {
			ui.Warning("skipped %s: %s", v.File.Name, v.Reason)
		}
	}
	selected := len(ws.Store.Snapshot().SelectedFiles)
	if selected == 0 {
		return fmt.Errorf("no valid files to process")
	}

	if processTemplate != "" {
		tpl, err := ws.SetTemplate(processTemplate)
		if err != nil {
			return err
		}
		ui.Info("Template: %s", tpl.Name)
	}
	if err := ws.SetOptions(processMode, processFormat); err != nil {
		return err
	}

	ui.Section(fmt.Sprintf("Processing %d file(s)", selected))
	rep, err := ws.Run(ctx, processPrompt)
	progress.Finish()
	if err != nil {
		return err
	}

	fmt.Print(report.Summarize(rep).Text())
	if rep.ErrorCount == 0 {
		ui.Success("%d of %d file(s) processed", rep.SuccessCount, rep.TotalSelected)
	} else {
		ui.Warning("%d succeeded, %d failed (%s)", rep.SuccessCount, rep.ErrorCount, rep.Outcome)
	}
	if processNoSave {
		return nil
	}
	art, loc, err := ws.Save(ctx, uuid.Nil, "")
	if err != nil {
		return err
	}
	ui.Success("Saved %s report to %s", art.Format, loc)
	return nil
}
