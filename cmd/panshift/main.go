// Panshift - tenant configuration push for Prisma Access migrations
//
// panshift pushes selections of security configuration objects (addresses,
// services, rules, profiles) into a tenant workspace, ordered so that
// referenced objects land before the objects that reference them.
//
// Usage:
//
//	panshift push -s selection.yaml      Plan a push from a selection spec
//	panshift history                     Show recorded push runs
//	panshift version                     Print version information
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panshift/panshift/pkg/history"
	"github.com/panshift/panshift/pkg/settings"
	"github.com/panshift/panshift/pkg/util"
	"github.com/panshift/panshift/pkg/version"
)

var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "panshift",
	Short:             "Tenant configuration push for Prisma Access migrations",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Panshift pushes selections of security configuration objects into a
tenant workspace. Items are ordered by their reference dependencies, name
conflicts resolve per strategy (skip, overwrite, rename), and every run is
recorded in the local history database.

  panshift push -s selection.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return util.SetLogLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newPushCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
}

// historyPath resolves the history database: PANSHIFT_HISTORY_DB env >
// settings > default ~/.panshift/history.db.
func historyPath() string {
	if v := os.Getenv("PANSHIFT_HISTORY_DB"); v != "" {
		return v
	}
	if s, err := settings.Load(); err == nil && s.HistoryDB != "" {
		return s.HistoryDB
	}
	return ""
}

// openHistory opens the run-history store, nil when unavailable. Recording
// history must never fail a push.
func openHistory() *history.Store {
	store, err := history.Open(historyPath())
	if err != nil {
		util.Warnf("History unavailable: %v", err)
		return nil
	}
	return store
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Println("panshift dev build (use 'make build' for version info)")
			} else {
				fmt.Printf("panshift %s (%s)\n", version.Version, version.GitCommit)
			}
		},
	}
}
