package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/kubelab"
)

var (
	flagProfile        string
	flagDriver         string
	flagCPUs           int
	flagMemoryMB       int
	flagDiskSize       string
	flagK8sVersion     string
	flagKubeconfig     string
	flagMinikubeBinary string
	flagKubectlBinary  string
	flagDataDir        string
	flagOutputDir      string
	flagManifests      string
	flagNamespace      string
	flagStartTimeout   time.Duration
	flagLogLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "kubelab",
	Short: "Reproduce the LoadBalancer <pending> external IP on minikube",
	Long: `kubelab provisions a local minikube cluster, deploys a Deployment plus a
Service of type LoadBalancer, and shows why the service's EXTERNAL-IP stays
<pending>: no cloud controller exists locally to provision a load balancer.

It also drives the workarounds (minikube tunnel, kubectl port-forward) and
archives kubectl assessment output for healthy and sick cluster scenarios.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagProfile, "profile", kubelab.DefaultProfile, "minikube profile (doubles as kubeconfig context and cluster ID)")
	pf.StringVar(&flagDriver, "driver", "", "minikube driver (empty lets minikube choose)")
	pf.IntVar(&flagCPUs, "cpus", kubelab.DefaultCPUs, "cluster CPU allotment")
	pf.IntVar(&flagMemoryMB, "memory", kubelab.DefaultMemoryMB, "cluster memory allotment in MB")
	pf.StringVar(&flagDiskSize, "disk-size", kubelab.DefaultDiskSize, "cluster disk allotment")
	pf.StringVar(&flagK8sVersion, "kubernetes-version", "", "Kubernetes version to deploy (empty uses minikube's default)")
	pf.StringVar(&flagKubeconfig, "kubeconfig", "", "explicit kubeconfig path (empty uses the usual defaults)")
	pf.StringVar(&flagMinikubeBinary, "minikube-binary", kubelab.DefaultMinikubeBinary, "minikube binary name or path")
	pf.StringVar(&flagKubectlBinary, "kubectl-binary", kubelab.DefaultKubectlBinary, "kubectl binary name or path")
	pf.StringVar(&flagDataDir, "data-dir", "", "directory for child-process log files (empty uses a temp dir)")
	pf.StringVar(&flagOutputDir, "output-dir", kubelab.DefaultOutputDir, "directory for assessment archives")
	pf.StringVar(&flagManifests, "manifests", kubelab.DefaultManifestRoot, "directory holding the scenario manifests")
	pf.StringVar(&flagNamespace, "namespace", "default", "namespace for scenario workloads")
	pf.DurationVar(&flagStartTimeout, "start-timeout", kubelab.DefaultStartTimeout, "timeout per minikube start attempt")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func setupLogging() {
	level := slog.LevelInfo
	switch flagLogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	kubelab.SetLogger(logger)
}

// newLab builds a Lab from the persistent flags.
func newLab(extra ...kubelab.Option) *kubelab.Lab {
	opts := []kubelab.Option{
		kubelab.WithProfile(flagProfile),
		kubelab.WithMinikubeBinary(flagMinikubeBinary),
		kubelab.WithKubectlBinary(flagKubectlBinary),
		kubelab.WithCPUs(flagCPUs),
		kubelab.WithMemoryMB(flagMemoryMB),
		kubelab.WithDiskSize(flagDiskSize),
		kubelab.WithOutputDir(flagOutputDir),
		kubelab.WithManifestRoot(flagManifests),
		kubelab.WithNamespace(flagNamespace),
		kubelab.WithStartTimeout(flagStartTimeout),
	}
	if flagDriver != "" {
		opts = append(opts, kubelab.WithDriver(flagDriver))
	}
	if flagK8sVersion != "" {
		opts = append(opts, kubelab.WithKubernetesVersion(flagK8sVersion))
	}
	if flagKubeconfig != "" {
		opts = append(opts, kubelab.WithKubeconfig(flagKubeconfig))
	}
	if flagDataDir != "" {
		opts = append(opts, kubelab.WithDataDir(flagDataDir))
	}
	opts = append(opts, extra...)
	return kubelab.New(opts...)
}
