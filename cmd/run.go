package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/filtering"
	"github.com/spigell/jobapplier/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single cycle: search, score, ask for approval and apply",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation, approve every posting that passes the filters")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	cfg, prof := loadInputs(logger)
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	logger.Info("starting the jobapplier",
		zap.String("version", version),
		zap.String("profile", prof.Name),
		zap.Int("sources", len(cfg.JobSources)),
	)

	wf, store, err := buildWorkflow(ctx, cfg, prof, buildOptions{autoApprove: autoApprove}, logger)
	if err != nil {
		logger.Fatal("building the workflow", zap.Error(err))
	}

	logFilters(logger, wf)

	summary, err := wf.RunOnce(ctx)
	if closeErr := store.Close(); closeErr != nil {
		logger.Warn("closing state store", zap.Error(closeErr))
	}
	if err != nil {
		logger.Fatal("cycle failed", zap.Error(err))
	}

	logSummary(logger, summary)
}

func logFilters(logger *zap.Logger, wf *workflow.Workflow) {
	for _, status := range filtering.Describe(wf.Filters()) {
		logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.Any("details", status.Details),
		)
	}
}

func logSummary(logger *zap.Logger, summary *workflow.Summary) {
	logger.Info("cycle summary",
		zap.String("run_id", summary.RunID),
		zap.Int("collected", summary.Collected),
		zap.Int("shortlist", summary.Shortlist),
		zap.Int("approved", summary.Approved),
		zap.Int("applied", summary.Applied),
		zap.Int("failed", summary.Failed),
		zap.Int("unroutable", summary.Unroutable),
	)
}
