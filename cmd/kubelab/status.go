package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/kubelab"
)

var statusWait time.Duration

var statusCmd = &cobra.Command{
	Use:   "status <service> [namespace]",
	Short: "Show a service's external IP the way kubectl renders it",
	Long: `Show a service's type, cluster IP, and external IP. For a LoadBalancer
service on a bare minikube cluster the external IP reads <pending>; that is
the expected steady state, not an error. Pass --wait to poll for an
assignment (useful while a tunnel is running).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}

		namespace := ""
		if len(args) == 2 {
			namespace = args[1]
		}

		var status kubelab.ServiceStatus
		var err error
		if statusWait > 0 {
			status, err = lab.WaitExternalIP(cmd.Context(), namespace, args[0], statusWait)
			if errors.Is(err, kubelab.ErrExternalIPPending) {
				// The finding itself; report it, exit zero.
				err = nil
			}
		} else {
			status, err = lab.ServiceStatus(cmd.Context(), namespace, args[0])
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "SERVICE      %s/%s\n", status.Namespace, status.Name)
		fmt.Fprintf(out, "TYPE         %s\n", status.Type)
		fmt.Fprintf(out, "CLUSTER-IP   %s\n", status.ClusterIP)
		fmt.Fprintf(out, "EXTERNAL-IP  %s\n", status.ExternalIP())
		if status.Pending() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "The external IP stays <pending> because no cloud controller exists")
			fmt.Fprintln(out, "locally to provision a load balancer. Try one of:")
			fmt.Fprintln(out, "  kubelab tunnel                    assigns an external IP while it runs")
			fmt.Fprintf(out, "  kubelab forward %-17s exposes the service on a local port\n", status.Name)
		}
		return nil
	},
}

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Print the cluster node's IP (for NodePort access)",
	RunE: func(cmd *cobra.Command, args []string) error {
		lab := newLab()
		defer lab.Close()
		if err := lab.Attach(cmd.Context()); err != nil {
			return err
		}
		ip, err := lab.NodeIP(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ip)
		return nil
	},
}

func init() {
	statusCmd.Flags().DurationVar(&statusWait, "wait", 0, "poll for an external IP for this long before reporting")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ipCmd)
}
