package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nao1215/feedprep/domain/model"
	"github.com/nao1215/feedprep/history"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	settingsPath string
	limit        int
}

func newHistoryCmd() *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent folder runs from the run history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showHistory(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.settingsPath, "settings", "s", defaultSettingsPath, "settings file (.json, .yaml or .yml)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", history.DefaultLimit, "number of entries to show")
	return cmd
}

func showHistory(cmd *cobra.Command, opts *historyOptions) error {
	settings, err := model.LoadSettings(opts.settingsPath)
	if err != nil {
		return err
	}
	if settings.HistoryDB == "" {
		return errors.New("historyDB is not set in the settings file")
	}

	store, err := history.Open(cmd.Context(), settings.HistoryDB)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close() // Read-only use
	}()

	entries, err := store.Recent(cmd.Context(), opts.limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tAPP\tSTATUS\tUPLOADED\tINPUT\tOUTPUT\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), e.App, e.Status, e.Uploaded, e.InputRows, e.OutputRows, e.Error)
	}
	return w.Flush()
}
