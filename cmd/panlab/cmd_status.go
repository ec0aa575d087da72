package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/panshift/panshift/pkg/cli"
	"github.com/panshift/panshift/pkg/workflow"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [name]",
		Short: "Show workflow state",
		Long: `Show deployment workflow state.

Without arguments, lists every deployment with recorded state. With a name,
shows that deployment's phase-by-phase progress.

  panlab status
  panlab status branch-east`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := stateStore()
			if err != nil {
				return err
			}
			defer closeStore(store)

			if len(args) == 0 {
				return showAllDeployments(store)
			}
			return showDeployment(store, args[0])
		},
	}
	return cmd
}

func showAllDeployments(store workflow.Store) error {
	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("no deployments with recorded state")
		return nil
	}

	table := cli.NewTable("DEPLOYMENT", "CURRENT PHASE", "STATUS", "UPDATED")
	for _, name := range names {
		state, err := store.Load(name)
		if err != nil || state == nil {
			continue
		}
		table.Row(
			state.Deployment,
			string(state.CurrentPhase),
			cli.Status(string(state.PhaseStatus(state.CurrentPhase))),
			state.Updated.Local().Format("2006-01-02 15:04:05"),
		)
	}
	table.Flush()
	return nil
}

func showDeployment(store workflow.Store, name string) error {
	state, err := store.Load(name)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("no recorded state for deployment %q", name)
	}

	fmt.Printf("%s (updated %s)\n\n", cli.Bold(state.Deployment),
		state.Updated.Local().Format("2006-01-02 15:04:05"))
	for _, line := range state.ResumeSummary() {
		fmt.Printf("  %s\n", line)
	}

	if state.IsPaused() {
		fmt.Printf("\n%s paused: re-run deploy with --resume once the awaited items clear\n", cli.Yellow("||"))
	}
	return nil
}
