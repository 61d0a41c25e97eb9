package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var deployRolloutTimeout time.Duration

var deployCmd = &cobra.Command{
	Use:   "deploy [manifest-dir-or-file...]",
	Short: "Apply manifests and wait for the rollout",
	Long: `Apply manifests through the API server and wait for every deployment to
roll out. Without arguments the healthy scenario manifests are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}

		paths := args
		if len(paths) == 0 {
			paths = []string{filepath.Join(flagManifests, "healthy")}
		}
		n, err := lab.Apply(cmd.Context(), paths...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d documents\n", n)

		return lab.WaitRollout(cmd.Context(), deployRolloutTimeout)
	},
}

func init() {
	deployCmd.Flags().DurationVar(&deployRolloutTimeout, "rollout-timeout", 2*time.Minute, "how long to wait for deployments to roll out")
	rootCmd.AddCommand(deployCmd)
}
