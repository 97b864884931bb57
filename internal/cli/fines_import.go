package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlokans/lendingdesk/internal/entrypoint"
	"github.com/mrlokans/lendingdesk/internal/fines"
)

// FineImportCommand loads a YAML fine schedule into the fine settings
type FineImportCommand struct {
	DryRun bool
}

func newFinesCommand() *cobra.Command {
	finesCmd := &cobra.Command{
		Use:   "fines",
		Short: "Manage fine settings",
	}

	ic := &FineImportCommand{}
	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import a fine schedule",
		Long: `Reads a YAML schedule and stores one fine setting per entry:

  currency: KES
  fines:
    overdue:   {amount: "10", description: "Per day overdue"}
    lost_book: {amount: "750.50"}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ic.DryRun {
				return ic.Preview(args[0], cmd.OutOrStdout())
			}
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)
			return ic.Run(cmd.Context(), app, args[0], cmd.OutOrStdout())
		},
	}
	importCmd.Flags().BoolVar(&ic.DryRun, "dry-run", false, "Validate and print the schedule without storing it")

	finesCmd.AddCommand(importCmd)
	return finesCmd
}

func (ic *FineImportCommand) Run(ctx context.Context, app *entrypoint.App, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open fine schedule: %w", err)
	}
	defer f.Close()

	n, err := app.Fines.ImportSchedule(ctx, f)
	if err != nil {
		return err
	}
	app.Audit.LogSettings("cli", "fine_schedule_import", fmt.Sprintf("Imported %d fine settings from %s", n, path))

	fmt.Fprintf(out, "✅ Imported %d fine settings\n", n)
	return nil
}

// Preview parses the schedule without touching the database
func (ic *FineImportCommand) Preview(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open fine schedule: %w", err)
	}
	defer f.Close()

	settings, currency, err := fines.ParseSchedule(f)
	if err != nil {
		return err
	}
	if currency != "" {
		fmt.Fprintf(out, "Currency: %s\n", currency)
	}
	for _, s := range settings {
		fmt.Fprintf(out, "  %-16s %s\n", s.FineType, s.Amount.StringFixed(2))
	}
	fmt.Fprintf(out, "%d entries, nothing stored (dry run)\n", len(settings))
	return nil
}
