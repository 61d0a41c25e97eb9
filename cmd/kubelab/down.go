package main

import (
	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the minikube cluster, keeping its state on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		return lab.Down(cmd.Context())
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the minikube profile completely",
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		return lab.Delete(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(deleteCmd)
}
