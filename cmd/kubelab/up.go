package main

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/kubelab"
)

var flagKeepCluster bool

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the minikube cluster and wait until it is ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []kubelab.Option
		if flagKeepCluster {
			opts = append(opts, kubelab.WithKeepCluster())
		}
		lab := newLab(opts...)
		defer lab.Close()
		return lab.Up(cmd.Context())
	},
}

func init() {
	upCmd.Flags().BoolVar(&flagKeepCluster, "keep-cluster", false,
		"reuse an existing profile instead of deleting it before start")
	rootCmd.AddCommand(upCmd)
}
