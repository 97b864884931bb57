package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrlokans/lendingdesk/internal/entrypoint"
	"github.com/mrlokans/lendingdesk/internal/tasks"
)

// ReconcileCommand runs the inventory repair pass once, in the foreground
type ReconcileCommand struct {
	Verbose bool
}

func newReconcileCommand() *cobra.Command {
	rc := &ReconcileCommand{}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair copy states and book counters across the catalog",
		Long: `Walks every book, creates missing copies for counter-only books, fixes copies
whose status disagrees with the open loans and recomputes the counters.
The outcome is stored as the last maintenance status and audited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)
			return rc.Run(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&rc.Verbose, "verbose", "v", false, "Print the library totals after the repair")
	return cmd
}

// Run executes the repair pass through the same processor the task queue uses
func (rc *ReconcileCommand) Run(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	fmt.Fprintln(out, "🔧 Reconciling inventory")

	process := tasks.ReconcileInventoryProcessor(app.Ledger, app.Settings, app.Audit, app.Log)
	err := process(ctx, tasks.ReconcileInventoryTask{Trigger: "cli"})

	status := app.Settings.GetMaintenanceStatus()
	fmt.Fprintf(out, "%s: %s\n", status.Status, status.Message)
	if err != nil {
		return err
	}

	if rc.Verbose {
		stats, err := app.Reports.LibraryStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "📚 %d books, %d copies (%d available)\n", stats.Books, stats.Copies, stats.AvailableCopies)
	}
	return nil
}
