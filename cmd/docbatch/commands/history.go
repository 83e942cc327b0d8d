package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/ui"
	"github.com/joseph-ayodele/docbatch/internal/bootstrap"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), bootstrap.Options{}, false)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		list, err := app.Workspace.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			ui.Info("No reports yet.")
			return nil
		}
		printSummaries(list)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum rows")
	rootCmd.AddCommand(historyCmd)
}

func printSummaries(list []entity.ReportSummary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGENERATED\tOUTCOME\tOK\tFAILED\tSELECTED\tPROMPT")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID, s.GeneratedAt.Local().Format("2006-01-02 15:04"), s.Outcome,
			s.SuccessCount, s.ErrorCount, s.TotalSelected, clip(s.Prompt, 40))
	}
	_ = tw.Flush()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
