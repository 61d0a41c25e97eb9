package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	forwardRemotePort   int
	forwardReadyTimeout time.Duration
)

var forwardCmd = &cobra.Command{
	Use:   "forward <service> [namespace]",
	Short: "Port-forward a service to a local port until interrupted",
	Long: `Run "kubectl port-forward" to the given service on a kernel-assigned
loopback port. This reaches the workload without an external IP; the
service itself keeps showing <pending>.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}

		namespace := "default"
		if len(args) == 2 {
			namespace = args[1]
		}

		forward, err := lab.StartPortForward(cmd.Context(), namespace, args[0], forwardRemotePort, forwardReadyTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "forwarding http://%s -> %s/%s:%d\n", forward.Addr(), namespace, args[0], forwardRemotePort)
		fmt.Fprintln(cmd.OutOrStdout(), "press Ctrl-C to stop")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case <-cmd.Context().Done():
		case <-sig:
		case <-forward.Exited():
			return fmt.Errorf("port-forward exited unexpectedly")
		}
		return nil
	},
}

func init() {
	forwardCmd.Flags().IntVar(&forwardRemotePort, "port", 80, "service port to forward to")
	forwardCmd.Flags().DurationVar(&forwardReadyTimeout, "ready-timeout", 30*time.Second, "how long to wait for the local port to accept connections")
	rootCmd.AddCommand(forwardCmd)
}
