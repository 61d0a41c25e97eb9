package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect <scenario-name>",
	Short: "Run the kubectl assessment battery against the current cluster state",
	Long: `Run every assessment command (cluster-info, nodes, pods, top, events,
services, deployments) and archive the output: one flat text file per
command plus a comprehensive JSON report, indexed in the output
directory's database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}

		report, err := lab.Collect(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d assessments to %s\n", len(report.Assessments), report.Path)
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived assessment runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()

		runs, err := lab.RecentRuns(cmd.Context(), 20)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no archived runs")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-4d %-20s %-10s %2d commands %2d failed  %s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Scenario, r.Commands, r.Failures, r.ReportPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runsCmd)
}
