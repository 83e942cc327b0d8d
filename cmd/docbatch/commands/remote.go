package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/ui"
	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/core"
	"github.com/joseph-ayodele/docbatch/internal/server"
)

var (
	remoteAddr     string
	remotePrompt   string
	remoteTemplate string
	remoteFormat   string
	remoteOut      string
	remoteYes      bool
	remotePoll     time.Duration
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Drive a docbatchd daemon",
}

var remoteRunCmd = &cobra.Command{
	Use:   "run <path>...",
	Short: "Select server-side paths, run a prompt and download the report",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemote,
}

var remoteStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the daemon's current selection and run state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *server.Client) error {
			st, err := c.GetState(ctx)
			if err != nil {
				return err
			}
			ui.Info("Run: %s (%s) %.0f%%", st.RunState, st.RunID, st.Progress.Percent)
			ui.Info("Files: %d selected, %d results, %d errors", len(st.Files), st.ResultCount, len(st.Errors))
			if st.Template != nil {
				ui.Info("Template: %s", st.Template.Name)
			}
			if st.PendingApproval != nil {
				ui.Warning("Waiting for approval: %s: %s", st.PendingApproval.FileName, st.PendingApproval.ErrorMessage)
			}
			return nil
		})
	},
}

var remoteReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List reports stored by the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *server.Client) error {
			list, err := c.ListReports(ctx, historyLimit)
			if err != nil {
				return err
			}
			printSummaries(list)
			return nil
		})
	},
}

var remoteResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the daemon's selection and results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *server.Client) error {
			return c.Reset(ctx)
		})
	},
}

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteAddr, "addr", "localhost:8080", "daemon address")
	remoteRunCmd.Flags().StringVarP(&remotePrompt, "prompt", "p", "", "instruction applied to every file (required)")
	remoteRunCmd.Flags().StringVarP(&remoteTemplate, "template", "t", "", "template name")
	remoteRunCmd.Flags().StringVarP(&remoteFormat, "format", "f", "", "export format")
	remoteRunCmd.Flags().StringVarP(&remoteOut, "out", "o", ".", "directory for the downloaded report")
	remoteRunCmd.Flags().BoolVarP(&remoteYes, "yes", "y", false, "continue after failures without asking")
	remoteRunCmd.Flags().DurationVar(&remotePoll, "poll", 250*time.Millisecond, "state polling interval")
	_ = remoteRunCmd.MarkFlagRequired("prompt")
	remoteReportsCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum rows")

	remoteCmd.AddCommand(remoteRunCmd, remoteStateCmd, remoteReportsCmd, remoteResetCmd)
	rootCmd.AddCommand(remoteCmd)
}

func withClient(ctx context.Context, fn func(context.Context, *server.Client) error) error {
	conn, err := grpc.NewClient(remoteAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", remoteAddr, err)
	}
	defer conn.Close()
	return fn(ctx, server.NewClient(conn))
}

func runRemote(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withClient(ctx, func(ctx context.Context, c *server.Client) error {
		sel, err := c.SelectFiles(ctx, args)
		if err != nil {
			return err
		}
		for _, v := range sel.Verdicts {
			if !v.Valid {
				ui.Warning("skipped %s: %s", v.File.Name, v.Reason)
			}
		}
		if remoteTemplate != "" {
			if _, err := c.SetTemplate(ctx, remoteTemplate); err != nil {
				return err
			}
		}
		if err := c.SetOptions(ctx, "", remoteFormat); err != nil {
			return err
		}
		before, err := c.GetState(ctx)
		if err != nil {
			return err
		}
		jobID, err := c.ProcessFiles(ctx, remotePrompt)
		if err != nil {
			return err
		}
		ui.Section(fmt.Sprintf("Processing %d file(s) (job %s)", sel.Selected, jobID))

		st, err := followRun(ctx, c, before.LastReportID)
		if err != nil {
			if ctx.Err() != nil {
				_, _ = c.CancelRun(context.Background())
			}
			return err
		}
		if st.LastReportID == nil {
			return fmt.Errorf("run ended without a report")
		}
		art, err := c.ExportReport(ctx, server.ExportRequest{ReportID: st.LastReportID.String()})
		if err != nil {
			return err
		}
		dst := filepath.Join(remoteOut, art.Filename)
		if err := os.WriteFile(dst, art.Data, 0o644); err != nil {
			return err
		}
		ui.Success("%s: wrote %s", st.RunState, dst)
		return nil
	})
}

// followRun polls state, renders progress and answers approval prompts until a report other than
// prev shows up.
func followRun(ctx context.Context, c *server.Client, prev *uuid.UUID) (server.StateView, error) {
	progress := ui.NewRunProgress()
	defer progress.Finish()
	in := bufio.NewReader(os.Stdin)

	ticker := time.NewTicker(remotePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return server.StateView{}, ctx.Err()
		case <-ticker.C:
		}
		st, err := c.GetState(ctx)
		if err != nil {
			return st, err
		}
		progress.Update(core.Progress{RunID: st.RunID, Index: st.Progress.Index, Total: st.Progress.Total,
			Percent: st.Progress.Percent, Label: st.Progress.Label, FileName: st.Progress.FileName})

		if st.PendingApproval != nil {
			progress.Clear()
			ok := remoteYes
			if !remoteYes {
				ui.Error("%s: %s", st.PendingApproval.FileName, st.PendingApproval.ErrorMessage)
				if ok, err = ui.Confirm(in, "Continue with the remaining files?", false); err != nil {
					ok = false
				}
			}
			if _, err := c.ResolveApproval(ctx, ok); err != nil {
				return st, err
			}
			continue
		}
		if st.RunState != constants.RunStateRunning && st.LastReportID != nil && (prev == nil || *st.LastReportID != *prev) {
			return st, nil
		}
	}
}
