// Command feedprep prepares identity feed files for upload.
//
// Usage:
//
//	feedprep run --settings settings.json [--app HR] [--verbose]
//	feedprep history --settings settings.json [--limit 20]
//	feedprep version
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

// defaultSettingsPath is used when --settings is not given
const defaultSettingsPath = "settings.json"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "feedprep:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedprep",
		Short: "Reshape per-application identity exports into upload-ready CSV files",
		Long: `feedprep walks every application folder below the configured root folders.

For each folder it picks the newest CSV, TXT or Excel export, reshapes it with
the folder's config.json, writes a processed snapshot and an upload snapshot
into the folder's Archive directory, optionally hands the upload snapshot to
the upload utility, and purges archived files past the retention window.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newHistoryCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the feedprep version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "feedprep", version)
		},
	}
}
