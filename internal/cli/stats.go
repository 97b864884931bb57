package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/lendingdesk/internal/entrypoint"
)

// StatsCommand prints the dashboard summary
type StatsCommand struct {
	JSON bool
}

func newStatsCommand() *cobra.Command {
	sc := &StatsCommand{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print borrowing counts, fine totals and library size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)
			return sc.Run(cmd.Context(), app, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&sc.JSON, "json", false, "Print the full summary as JSON")
	return cmd
}

func (sc *StatsCommand) Run(ctx context.Context, app *entrypoint.App, out io.Writer) error {
	summary, err := app.Reports.Summary(ctx)
	if err != nil {
		return err
	}

	if sc.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintln(out, "📊 Library summary")
	fmt.Fprintln(out, strings.Repeat("=", 18))
	fmt.Fprintln(out, app.Reports.Describe(summary))

	lib := summary.Library
	fmt.Fprintf(out, "Books: %d, copies: %d (%d available)\n", lib.Books, lib.Copies, lib.AvailableCopies)
	fmt.Fprintf(out, "Patrons: %d students, %d staff\n", lib.Students, lib.Staff)
	if lib.OpenTheftReports > 0 {
		fmt.Fprintf(out, "⚠️  %d open theft reports\n", lib.OpenTheftReports)
	}

	if len(summary.ByClass) > 0 {
		formatter := app.Fines.Formatter()
		fmt.Fprintln(out, "\nOutstanding fines by class:")
		for _, class := range summary.ByClass {
			fmt.Fprintf(out, "  %-24s %s\n", class.ClassName, formatter.Format(class.Outstanding))
		}
	}
	return nil
}
