package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/panshift/panshift/pkg/cli"
	"github.com/panshift/panshift/pkg/deploy"
	"github.com/panshift/panshift/pkg/spec"
	"github.com/panshift/panshift/pkg/terraform"
	"github.com/panshift/panshift/pkg/util"
)

func newDestroyCmd() *cobra.Command {
	var configPath string
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy -c <spec.yaml>",
		Short: "Tear down a deployment's infrastructure",
		Long: `Destroy all terraform-managed infrastructure for a deployment and drop
its recorded workflow state.

  panlab destroy -c deployment.yaml
  panlab destroy -c deployment.yaml --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dep, err := spec.LoadDeployment(configPath)
			if err != nil {
				return err
			}

			if !yes && !confirm(fmt.Sprintf("This destroys all infrastructure for deployment %q. Continue?", dep.Name)) {
				fmt.Println("aborted")
				return nil
			}

			runner, err := terraform.New(dep.Terraform.Workdir, dep.Terraform.Variables, util.Logger)
			if err != nil {
				return err
			}

			coord := deploy.New(dep, deploy.Options{
				Provisioner: runner,
				Logger:      util.Logger,
				Progress:    consoleProgress,
			})

			fmt.Printf("Destroying %s...\n", dep.Name)
			if err := coord.Destroy(cmd.Context()); err != nil {
				return err
			}

			// Recorded outputs are stale once the infrastructure is gone.
			if store, err := stateStore(); err == nil {
				defer closeStore(store)
				if err := store.Remove(dep.Name); err != nil {
					util.Warnf("Removing workflow state: %v", err)
				}
			}

			fmt.Printf("%s %s destroyed\n", cli.Green("ok"), dep.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "deployment spec file (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.MarkFlagRequired("config")
	return cmd
}

// confirm prints a yes/no prompt and reads one line from stdin.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
