package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/panshift/panshift/pkg/cli"
	"github.com/panshift/panshift/pkg/deploy"
	"github.com/panshift/panshift/pkg/device"
	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/terraform"
	"github.com/panshift/panshift/pkg/util"
	"github.com/panshift/panshift/pkg/workflow"
)

func newDeployCmd() *cobra.Command {
	var configPath string
	var skipProvision bool
	var resume bool
	var sequential bool

	cmd := &cobra.Command{
		Use:   "deploy -c <spec.yaml>",
		Short: "Provision and configure a deployment",
		Long: `Run a deployment end to end: terraform builds the infrastructure, then
every firewall (and Panorama, when configured) is configured over SSH and
committed.

A deployment that pauses for manual licensing, or fails partway, resumes
from its recorded workflow state:

  panlab deploy -c deployment.yaml
  panlab deploy -c deployment.yaml --resume`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dep, err := spec.LoadDeployment(configPath)
			if err != nil {
				return err
			}
			if sequential {
				dep.Sequential = true
			}
			if err := promptPasswords(dep); err != nil {
				return err
			}

			store, err := stateStore()
			if err != nil {
				return err
			}
			defer closeStore(store)

			state, err := store.Load(dep.Name)
			if err != nil {
				return err
			}
			if state == nil {
				if resume {
					return fmt.Errorf("no recorded state for deployment %q to resume from", dep.Name)
				}
				state = workflow.New(dep.Name)
			}
			tracker := workflow.NewTracker(state, store)

			runner, err := terraform.New(dep.Terraform.Workdir, dep.Terraform.Variables, util.Logger)
			if err != nil {
				return err
			}

			coord := deploy.New(dep, deploy.Options{
				Provisioner:   runner,
				Tracker:       tracker,
				SkipProvision: skipProvision || resume,
				Logger:        util.Logger,
				Progress:      consoleProgress,
			})

			res := coord.Deploy(cmd.Context())
			printDeployResult(res)
			recordDeployment(cmd.Context(), res)

			if res.Paused {
				fmt.Printf("\nActivate the licenses, then re-run:\n  panlab deploy -c %s --resume\n", configPath)
				return nil
			}
			if res.Failed() {
				return fmt.Errorf("deployment %s failed: %s", res.Deployment, res.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "deployment spec file (required)")
	cmd.Flags().BoolVar(&skipProvision, "skip-provision", false, "reuse recorded terraform outputs instead of provisioning")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume the deployment from its recorded workflow state")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "configure firewalls one at a time")
	cmd.MarkFlagRequired("config")
	return cmd
}

// promptPasswords asks for any password the spec leaves empty. Requires an
// interactive terminal; batch runs must carry passwords in the spec.
func promptPasswords(dep *spec.DeploymentSpec) error {
	var missing []string
	if dep.Panorama != nil && dep.Panorama.Password == "" {
		missing = append(missing, dep.PanoramaName())
	}
	for i := range dep.Firewalls {
		if dep.Firewalls[i].Password == "" {
			missing = append(missing, dep.Firewalls[i].Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("passwords required for %v: add them to the spec or run interactively", missing)
	}

	if dep.Panorama != nil && dep.Panorama.Password == "" {
		pw, err := readPassword(dep.Panorama.Username, dep.PanoramaName())
		if err != nil {
			return err
		}
		dep.Panorama.Password = pw
	}
	for i := range dep.Firewalls {
		fw := &dep.Firewalls[i]
		if fw.Password == "" {
			pw, err := readPassword(fw.Username, fw.Name)
			if err != nil {
				return err
			}
			fw.Password = pw
		}
	}
	return nil
}

func readPassword(username, target string) (string, error) {
	fmt.Printf("Password for %s@%s: ", username, target)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password for %s: %w", target, err)
	}
	return string(pw), nil
}

// consoleProgress renders coordinator events: phase changes as headers,
// per-firewall completions as counted lines.
func consoleProgress(message string, current, total int) {
	if total == 0 {
		fmt.Printf("==> %s\n", message)
		return
	}
	fmt.Printf("  [%d/%d] %s\n", current, total, message)
}

func printDeployResult(res *deploy.Result) {
	fmt.Println()

	if len(res.ManagementIPs) > 0 {
		names := make([]string, 0, len(res.ManagementIPs))
		for name := range res.ManagementIPs {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("Management addresses:")
		for _, name := range names {
			fmt.Printf("  %s %s\n", cli.DotPad(name, 28), res.ManagementIPs[name])
		}
		fmt.Println()
	}

	table := cli.NewTable("TARGET", "STATUS", "SERIAL", "VERSION", "ERROR")
	if res.PanoramaResult != nil {
		table.Row(deviceRow(res.PanoramaResult)...)
	}
	for _, name := range sortedResultNames(res.FirewallResults) {
		table.Row(deviceRow(res.FirewallResults[name])...)
	}
	table.Flush()

	if res.Paused {
		fmt.Printf("\n%s deployment paused: %s\n", cli.Yellow("||"), res.Message)
		fmt.Printf("   awaiting licenses for: %v\n", res.Awaiting)
		return
	}

	mark := cli.Green("ok")
	if res.Failed() {
		mark = cli.Red("x")
	} else if res.Status == deploy.StatusPartial {
		mark = cli.Yellow("!")
	}
	fmt.Printf("\n%s %s: %s after %s", mark, res.Deployment,
		cli.Status(string(res.Status)), res.Duration().Round(time.Second))
	if res.Verified {
		fmt.Print(", verified")
	}
	fmt.Println()

	for _, e := range res.Errors {
		fmt.Printf("  %s %s\n", cli.Red("!"), e)
	}
}

func sortedResultNames(results map[string]*device.Result) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func deviceRow(r *device.Result) []string {
	return []string{
		r.Target,
		cli.Status(string(r.Status)),
		r.Serial,
		r.Version,
		r.Error,
	}
}

// recordDeployment stores the run in history. Failure to record never fails
// the deployment itself.
func recordDeployment(ctx context.Context, res *deploy.Result) {
	store := openHistory()
	if store == nil {
		return
	}
	defer store.Close()
	if _, err := store.RecordDeployment(ctx, res); err != nil {
		util.Warnf("Recording history: %v", err)
	}
}
