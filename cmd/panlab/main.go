// Panlab - lab deployment coordinator for PAN-OS firewall environments
//
// panlab provisions lab infrastructure with terraform and configures the
// resulting firewalls and Panorama over SSH: system settings, interfaces,
// zones, policy, licensing, templates, and device registration. Progress
// is checkpointed so interrupted deployments resume where they stopped.
//
// Usage:
//
//	panlab deploy -c <spec.yaml>     Provision and configure a deployment
//	panlab destroy -c <spec.yaml>    Tear down a deployment's infrastructure
//	panlab status [name]             Show workflow state
//	panlab history [name]            Show recorded deployments
//	panlab version                   Print version information
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panshift/panshift/pkg/history"
	"github.com/panshift/panshift/pkg/settings"
	"github.com/panshift/panshift/pkg/util"
	"github.com/panshift/panshift/pkg/version"
	"github.com/panshift/panshift/pkg/workflow"
)

var (
	logLevel  string
	redisAddr string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "panlab",
	Short:             "Lab deployment coordinator for PAN-OS firewall environments",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Panlab builds firewall lab environments end to end: terraform provisions
the infrastructure, then each firewall and Panorama is configured over SSH
and committed. Workflow state persists between runs, so a deployment that
stops (a failure, or a pause for manual licensing) resumes from its last
checkpoint.

  panlab deploy -c deployment.yaml`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return util.SetLogLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "redis address for shared workflow state (host:port)")

	rootCmd.AddCommand(
		newDeployCmd(),
		newDestroyCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
}

// stateStore picks the workflow store: --redis or PANSHIFT_REDIS_ADDR for a
// shared store, file-backed state under ~/.panshift/deployments otherwise.
// Callers own closing the returned store when it is a RedisStore.
func stateStore() (workflow.Store, error) {
	addr := redisAddr
	if addr == "" {
		addr = os.Getenv("PANSHIFT_REDIS_ADDR")
	}
	if addr != "" {
		store := workflow.NewRedisStore(addr)
		if err := store.Connect(); err != nil {
			return nil, err
		}
		return store, nil
	}

	dir, err := workflow.DefaultStateDir()
	if err != nil {
		return nil, err
	}
	return workflow.NewFileStore(dir), nil
}

func closeStore(store workflow.Store) {
	if rs, ok := store.(*workflow.RedisStore); ok {
		rs.Close()
	}
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
// history must never fail a deployment.
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
				fmt.Println("panlab dev build (use 'make build' for version info)")
			} else {
				fmt.Printf("panlab %s (%s)\n", version.Version, version.GitCommit)
			}
		},
	}
}
