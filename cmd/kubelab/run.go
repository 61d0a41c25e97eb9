package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/kubelab"
)

var (
	runScenarioFile string
	runOnly         []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenario suite end to end",
	Long: `Run each scenario through its full lifecycle: apply manifests, wait for
the rollout, let the cluster settle, collect assessment output, and clean
up. Without --scenarios the builtin sick and healthy scenarios run, in
that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}

		var scenarios []kubelab.Scenario
		var err error
		if runScenarioFile != "" {
			scenarios, err = kubelab.LoadScenarios(runScenarioFile)
			if err != nil {
				return err
			}
		} else {
			scenarios = kubelab.BuiltinScenarios(flagManifests)
		}
		if len(runOnly) > 0 {
			scenarios = filterScenarios(scenarios, runOnly)
			if len(scenarios) == 0 {
				return fmt.Errorf("no scenarios match %v", runOnly)
			}
		}

		reports, err := lab.RunScenarios(cmd.Context(), scenarios...)
		for _, r := range reports {
			fmt.Fprintf(cmd.OutOrStdout(), "scenario %-10s archived to %s\n", r.Scenario, r.Path)
		}
		return err
	},
}

func filterScenarios(scenarios []kubelab.Scenario, names []string) []kubelab.Scenario {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []kubelab.Scenario
	for _, sc := range scenarios {
		if want[sc.Name] {
			out = append(out, sc)
		}
	}
	return out
}

func init() {
	runCmd.Flags().StringVar(&runScenarioFile, "scenarios", "", "YAML file defining scenarios (empty uses the builtins)")
	runCmd.Flags().StringSliceVar(&runOnly, "only", nil, "run only the named scenarios")
	rootCmd.AddCommand(runCmd)
}
