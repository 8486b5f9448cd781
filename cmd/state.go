package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print seen postings and application outcomes as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		showState(cmd)
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func showState(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := state.Open(ctx, cfg.StateConfig(), logger)
	if err != nil {
		logger.Fatal("opening state store", zap.Error(err))
	}
	defer store.Close()

	snapshot, err := store.Snapshot(ctx)
	if err != nil {
		logger.Fatal("reading state", zap.Error(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		logger.Fatal("printing state", zap.Error(err))
	}
}
