package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/entrypoint"
	"github.com/mrlokans/lendingdesk/internal/logger"
)

// NewRootCommand builds the lendingdesk command tree. Without a subcommand the
// HTTP server is started.
func NewRootCommand(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:           "lendingdesk",
		Short:         "School library lending desk",
		Long:          "Issue and return books against patron limits, assess fines and flag copies returned by the wrong patron.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(config.NewConfig(), version)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API with the task queue and maintenance scheduler",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return entrypoint.Run(config.NewConfig(), version)
			},
		},
		newReconcileCommand(),
		newStatsCommand(),
		newFinesCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "lendingdesk %s (%s)\n", version, commit)
			},
		},
	)
	return root
}

// openApp wires the services for a one-shot command. The task queue, the scheduler
// and the report archive stay off.
func openApp(ctx context.Context) (*entrypoint.App, error) {
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Tasks.Enabled = false
	cfg.Archive.Bucket = ""

	level := cfg.Log.Level
	if level == "info" {
		level = "warn"
	}
	log, err := logger.New(level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	return entrypoint.Build(ctx, cfg, log)
}

func closeApp(cmd *cobra.Command, app *entrypoint.App) {
	if err := app.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}
