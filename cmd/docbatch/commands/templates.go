package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docbatch/cmd/docbatch/ui"
	"github.com/joseph-ayodele/docbatch/internal/bootstrap"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available extraction templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), bootstrap.Options{}, false)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		ui.Section("Templates")
		for _, t := range app.Workspace.Templates.List() {
			fmt.Printf("%-16s %s\n", t.Name, t.Description)
			if len(t.Fields) > 0 {
				fmt.Printf("%-16s fields: %s\n", "", strings.Join(t.Fields, ", "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
