package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/panshift/panshift/pkg/cli"
	"github.com/panshift/panshift/pkg/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded push runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(historyPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListPushRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no recorded push runs")
				return nil
			}

			table := cli.NewTable("STARTED", "TOTAL", "CREATED", "UPDATED", "RENAMED", "SKIPPED", "FAILED", "STRATEGY")
			for _, run := range runs {
				table.Row(
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(run.Total),
					strconv.Itoa(run.Created),
					strconv.Itoa(run.Updated),
					strconv.Itoa(run.Renamed),
					strconv.Itoa(run.Skipped),
					colorCount(run.Failed),
					run.Strategy,
				)
			}
			table.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")
	return cmd
}

// colorCount renders a failure count, red when non-zero.
func colorCount(n int) string {
	s := strconv.Itoa(n)
	if n > 0 {
		return cli.Red(s)
	}
	return s
}
