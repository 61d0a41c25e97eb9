package main

import (
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete all workload objects in the scenario namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}
		return lab.Cleanup(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
