package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/panshift/panshift/pkg/cli"
	"github.com/panshift/panshift/pkg/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [name]",
		Short: "Show recorded deployments",
		Long: `Show recorded deployment runs, newest first. With a name, only that
deployment's runs.

  panlab history
  panlab history branch-east`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(historyPath())
			if err != nil {
				return err
			}
			defer store.Close()

			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			runs, err := store.ListDeployments(cmd.Context(), name, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no recorded deployments")
				return nil
			}

			table := cli.NewTable("STARTED", "DEPLOYMENT", "STATUS", "FIREWALLS", "FAILED", "VERIFIED", "DURATION")
			for _, run := range runs {
				table.Row(
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Name,
					cli.Status(run.Status),
					strconv.Itoa(run.Firewalls),
					strconv.Itoa(run.Failed),
					yesNo(run.Verified),
					run.EndedAt.Sub(run.StartedAt).Round(time.Second).String(),
				)
			}
			table.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
