package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repeat cycles on a cron schedule until interrupted",
	Run: func(cmd *cobra.Command, _ []string) {
		watch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("schedule", "s", "", "cron expression or @every interval (default is watch.schedule from the config)")
	watchCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation, approve every posting that passes the filters")

	viper.BindPFlag("watch.schedule", watchCmd.Flags().Lookup("schedule"))
}

func watch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer logger.Sync()

	cfg, prof := loadInputs(logger)
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	schedule := viper.GetString("watch.schedule")

	// buildWorkflow closes the store itself when it fails.
	wf, store, err := buildWorkflow(ctx, cfg, prof, buildOptions{autoApprove: autoApprove}, logger)
	if err != nil {
		logger.Fatal("building the workflow", zap.Error(err))
	}

	logFilters(logger, wf)

	err = watchLoop(ctx, schedule, func() {
		summary, err := wf.RunOnce(ctx)
		if err != nil {
			logger.Error("cycle failed", zap.Error(err))
			return
		}
		logSummary(logger, summary)
	}, logger)
	if closeErr := store.Close(); closeErr != nil {
		logger.Warn("closing state store", zap.Error(closeErr))
	}
	if err != nil {
		logger.Fatal("watching", zap.Error(err), zap.String("schedule", schedule))
	}
}

// watchLoop runs cycle right away and then on schedule until ctx is done.
// It returns only after every started cycle has finished.
func watchLoop(ctx context.Context, schedule string, cycle func(), logger *zap.Logger) error {
	cronLogger := zapCronLogger{logger: logger.Named("cron")}
	// The same wrapped job serves the first run and the ticks, so cycles never overlap.
	job := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(cycle))

	scheduler := cron.New(cron.WithLogger(cronLogger))
	if _, err := scheduler.AddJob(schedule, job); err != nil {
		return fmt.Errorf("parsing the schedule: %w", err)
	}

	logger.Info("starting the jobapplier watcher", zap.String("version", version), zap.String("schedule", schedule))

	scheduler.Start()

	var first sync.WaitGroup
	first.Add(1)
	go func() {
		defer first.Done()
		job.Run()
	}()

	<-ctx.Done()
	logger.Info("stopping the watcher, waiting for the running cycle")
	<-scheduler.Stop().Done()
	first.Wait()

	return nil
}

// zapCronLogger implements cron.Logger on top of zap.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
