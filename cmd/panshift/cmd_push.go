package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/panshift/panshift/pkg/cli"
	"github.com/panshift/panshift/pkg/push"
	"github.com/panshift/panshift/pkg/scm"
	"github.com/panshift/panshift/pkg/settings"
	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/util"
	"github.com/panshift/panshift/pkg/workflow"
)

func newPushCmd() *cobra.Command {
	var selectionPath string
	var existingPath string
	var strategyFlag string
	var stateName string
	var apiRate float64
	var quiet bool

	cmd := &cobra.Command{
		Use:   "push -s <selection.yaml>",
		Short: "Plan a configuration push from a selection spec",
		Long: `Run a push selection against an in-memory tenant workspace and report
what each item would do: created, updated, skipped, renamed, or failed.

Seed the workspace with --existing to plan against objects that already
exist in the tenant.

  panshift push -s selection.yaml
  panshift push -s selection.yaml --existing tenant-seed.yaml --strategy rename`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := spec.LoadSelection(selectionPath)
			if err != nil {
				return err
			}

			inv := scm.NewInventory()
			if existingPath != "" {
				seed, err := spec.LoadSeed(existingPath)
				if err != nil {
					return err
				}
				if err := seed.Apply(inv); err != nil {
					return err
				}
			}

			strategy, err := push.ParseStrategy(resolveStrategy(strategyFlag))
			if err != nil {
				return err
			}

			opts := push.Options{Logger: util.Logger}
			if apiRate > 0 {
				opts.Limiter = rate.NewLimiter(rate.Limit(apiRate), 1)
			}
			if !quiet {
				opts.Progress = func(message string, current, total int) {
					fmt.Printf("  [%d/%d] %s\n", current, total, message)
				}
			}

			pusher := push.New(inv, opts)
			sum, err := pusher.Push(cmd.Context(), sel, strategy)
			if err != nil {
				return err
			}

			printPushSummary(sum)
			recordPush(cmd.Context(), sum)

			if stateName != "" {
				markWorkflow(stateName, sum)
			}

			if len(sum.Errors) > 0 {
				return fmt.Errorf("push finished with %d problems", len(sum.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&selectionPath, "selection", "s", "", "selection spec file (required)")
	cmd.Flags().StringVar(&existingPath, "existing", "", "seed file listing objects already in the tenant")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "conflict strategy: skip, overwrite, or rename")
	cmd.Flags().StringVar(&stateName, "state", "", "deployment workflow to mark scm_config on")
	cmd.Flags().Float64Var(&apiRate, "rate", 0, "tenant API calls per second (0 = unlimited)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-item progress")
	cmd.MarkFlagRequired("selection")
	return cmd
}

// resolveStrategy applies flag > PANSHIFT_STRATEGY env > settings. Empty
// means the selection or engine default decides.
func resolveStrategy(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("PANSHIFT_STRATEGY"); v != "" {
		return v
	}
	if s, err := settings.Load(); err == nil && s.DefaultStrategy != "" {
		return s.DefaultStrategy
	}
	return ""
}

func printPushSummary(sum *push.Summary) {
	table := cli.NewTable("KIND", "NAME", "LOCATION", "ACTION", "REASON")
	for _, r := range sum.Results {
		name := r.Name
		if r.NewName != "" {
			name = r.Name + " -> " + r.NewName
		}
		table.Row(string(r.Kind), name, r.Location, cli.Action(string(r.Action)), r.Reason)
	}
	table.Flush()

	fmt.Printf("\n%s %d items: %d created, %d updated, %d renamed, %d skipped, %d failed (%s)\n",
		summaryMark(sum), sum.Total, sum.Created, sum.Updated, sum.Renamed,
		sum.Skipped, sum.Failed, sum.Duration().Round(time.Millisecond))

	if len(sum.Errors) > 0 {
		fmt.Println()
		for _, e := range sum.Errors {
			fmt.Printf("  %s %s\n", cli.Red("!"), e)
		}
	}
}

func summaryMark(sum *push.Summary) string {
	if sum.Failed > 0 || len(sum.Errors) > 0 {
		return cli.Red("x")
	}
	return cli.Green("ok")
}

// recordPush stores the run in history. Failure to record never fails the
// push itself.
func recordPush(ctx context.Context, sum *push.Summary) {
	store := openHistory()
	if store == nil {
		return
	}
	defer store.Close()
	if _, err := store.RecordPush(ctx, sum); err != nil {
		util.Warnf("Recording history: %v", err)
	}
}

// markWorkflow records the push outcome on the named deployment's
// scm_config phase.
func markWorkflow(name string, sum *push.Summary) {
	dir, err := workflow.DefaultStateDir()
	if err != nil {
		util.Warnf("Workflow state: %v", err)
		return
	}
	store := workflow.NewFileStore(dir)
	state, err := store.Load(name)
	if err != nil {
		util.Warnf("Workflow state: %v", err)
		return
	}
	if state == nil {
		util.Warnf("No workflow state for deployment %q", name)
		return
	}

	tracker := workflow.NewTracker(state, store)
	if len(sum.Errors) > 0 {
		err = tracker.FailPhase(workflow.PhaseSCMConfig,
			fmt.Errorf("%s", strings.Join(sum.Errors, "; ")))
	} else {
		err = tracker.CompletePhase(workflow.PhaseSCMConfig, sum.Record())
	}
	if err != nil {
		util.Warnf("Workflow state: %v", err)
	}
}
