package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/feedprep"
	"github.com/nao1215/feedprep/domain/model"
	"github.com/nao1215/feedprep/history"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	settingsPath string
	app          string
	verbose      bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every application folder once",
		Long: `Processes every application folder below the configured root folders.

A folder that has no config.json or no input file is skipped; a folder whose
snapshots cannot be written is reported as errored. Neither stops the run.
The command exits non-zero when at least one folder errored.

Example:
  feedprep run --settings /srv/feeds/settings.json --app HR`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeeds(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.settingsPath, "settings", "s", defaultSettingsPath, "settings file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&opts.app, "app", "", "only process folders whose name contains this text (overrides AppFilter)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "write debug records to the logs")
	return cmd
}

func runFeeds(cmd *cobra.Command, opts *runOptions) error {
	settings, err := model.LoadSettings(opts.settingsPath)
	if err != nil {
		return fmt.Errorf("%w: %w", feedprep.ErrConfig, err)
	}
	if opts.app != "" {
		settings.AppFilter = opts.app
	}

	logger, closeLog, err := feedprep.NewExecutionLogger(settings.LogDir, time.Now().Format(feedprep.DateLayout), opts.verbose)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog() // Nothing left to log to
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := feedprep.NewPipeline(settings, logger)
	pipeline.Verbose = opts.verbose
	if settings.HistoryDB != "" {
		store, err := history.Open(ctx, settings.HistoryDB)
		if err != nil {
			logger.Warn("run history disabled", zap.String("path", settings.HistoryDB), zap.Error(err))
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("failed to close run history", zap.Error(err))
				}
			}()
			pipeline.History = store
		}
	}

	summary := feedprep.NewRunner(settings, pipeline, logger).Run(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	if summary.Errored > 0 {
		return fmt.Errorf("%d of %d folders errored", summary.Errored, summary.Total())
	}
	return nil
}
