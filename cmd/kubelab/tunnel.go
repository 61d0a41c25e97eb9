package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Run minikube tunnel until interrupted",
	Long: `Run "minikube tunnel" as a supervised child process. While the tunnel is
up, minikube assigns external IPs to LoadBalancer services and their
<pending> state clears. Stopping the tunnel (Ctrl-C) withdraws the routes
and the services fall back to <pending>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}

		if err := lab.StartTunnel(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "tunnel running; LoadBalancer services will receive external IPs")
		fmt.Fprintln(cmd.OutOrStdout(), "press Ctrl-C to stop")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-cmd.Context().Done():
		case <-sig:
		}
		return lab.StopTunnel()
	},
}

func init() {
	rootCmd.AddCommand(tunnelCmd)
}
