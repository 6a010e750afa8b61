// Package cmd defines and implements the CLI commands for the aftt-sync
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aftt-sync",
		Short: "Synchronizes AFTT competition data into a local database.",
		Long: `aftt-sync crawls the Belgian table tennis federation sites and keeps a
local database of divisions, standings, club rosters and tournaments.
Run "serve" for the long-running HTTP service, or "sync" for a one-shot
crawl of a single job family.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment only)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
