package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/ui"
	"github.com/joseph-ayodele/docbatch/internal/bootstrap"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <report-id>",
	Short: "Export a stored report",
	Long:  "Export a stored report. With --out the file is written there; otherwise it goes to the configured sink.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		app, err := openApp(cmd.Context(), bootstrap.Options{}, false)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		if exportOut == "" {
			art, loc, err := app.Workspace.Save(cmd.Context(), id, exportFormat)
			if err != nil {
				return err
			}
			ui.Success("Saved %s report to %s", art.Format, loc)
			return nil
		}
		art, err := app.Workspace.Export(cmd.Context(), id, exportFormat)
		if err != nil {
			return err
		}
		dst := exportOut
		if st, err := os.Stat(dst); err == nil && st.IsDir() {
			dst = filepath.Join(dst, art.Filename)
		}
		if err := os.WriteFile(dst, art.Data, 0o644); err != nil {
			return err
		}
		ui.Success("Wrote %s", dst)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "excel, csv, pdf, json or text")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "file or directory to write")
	rootCmd.AddCommand(exportCmd)
}
