package kubelab

import (
	"fmt"
	"log/slog"
	"time"
)

// config collects everything a Lab needs. It is assembled from defaults
// and options; fields are immutable once New returns.
type config struct {
	profile        string
	minikubeBinary string
	kubectlBinary  string

	driver            string
	cpus              int
	memoryMB          int
	diskSize          string
	kubernetesVersion string
	addons            []string

	kubeconfig   string
	dataDir      string
	outputDir    string
	manifestRoot string
	namespace    string

	startTimeout   time.Duration
	commandTimeout time.Duration
	keepCluster    bool

	logger *slog.Logger
}

// Option configures a Lab. Options panic on invalid input: a bad option is
// a programming error at the call site, not a runtime condition.
type Option func(*config)

func requireNonEmpty(option, value string) {
	if value == "" {
		panic(fmt.Sprintf("kubelab: %s must not be empty", option))
	}
}

func requirePositive(option string, value int) {
	if value <= 0 {
		panic(fmt.Sprintf("kubelab: %s must be positive, got %d", option, value))
	}
}

func requirePositiveDuration(option string, value time.Duration) {
	if value <= 0 {
		panic(fmt.Sprintf("kubelab: %s must be positive, got %s", option, value))
	}
}

// WithProfile sets the minikube profile name, which doubles as the
// kubeconfig context and the cluster ID in assessment archives.
func WithProfile(profile string) Option {
	requireNonEmpty("profile", profile)
	return func(c *config) { c.profile = profile }
}

// WithMinikubeBinary sets the minikube binary name or path.
func WithMinikubeBinary(binary string) Option {
	requireNonEmpty("minikube binary", binary)
	return func(c *config) { c.minikubeBinary = binary }
}

// WithKubectlBinary sets the kubectl binary name or path.
func WithKubectlBinary(binary string) Option {
	requireNonEmpty("kubectl binary", binary)
	return func(c *config) { c.kubectlBinary = binary }
}

// WithDriver pins the minikube driver (e.g. "docker"). Unset lets minikube
// choose.
func WithDriver(driver string) Option {
	requireNonEmpty("driver", driver)
	return func(c *config) { c.driver = driver }
}

// WithCPUs sets the cluster CPU allotment.
func WithCPUs(cpus int) Option {
	requirePositive("cpus", cpus)
	return func(c *config) { c.cpus = cpus }
}

// WithMemoryMB sets the cluster memory allotment in megabytes.
func WithMemoryMB(mb int) Option {
	requirePositive("memory", mb)
	return func(c *config) { c.memoryMB = mb }
}

// WithDiskSize sets the cluster disk allotment (e.g. "20g").
func WithDiskSize(size string) Option {
	requireNonEmpty("disk size", size)
	return func(c *config) { c.diskSize = size }
}

// WithKubernetesVersion pins the Kubernetes version minikube deploys.
func WithKubernetesVersion(version string) Option {
	requireNonEmpty("kubernetes version", version)
	return func(c *config) { c.kubernetesVersion = version }
}

// WithAddons replaces the addon set enabled after start. An empty list
// disables addon setup entirely.
func WithAddons(addons ...string) Option {
	for _, a := range addons {
		requireNonEmpty("addon", a)
	}
	return func(c *config) { c.addons = addons }
}

// WithKubeconfig points the Lab at an explicit kubeconfig file instead of
// the usual defaults.
func WithKubeconfig(path string) Option {
	requireNonEmpty("kubeconfig", path)
	return func(c *config) { c.kubeconfig = path }
}

// WithDataDir sets the working directory for child-process log files.
// Unset means a per-profile directory under the system temp dir.
func WithDataDir(dir string) Option {
	requireNonEmpty("data dir", dir)
	return func(c *config) { c.dataDir = dir }
}

// WithOutputDir sets where assessment archives are written.
func WithOutputDir(dir string) Option {
	requireNonEmpty("output dir", dir)
	return func(c *config) { c.outputDir = dir }
}

// WithManifestRoot sets the directory holding the builtin scenario
// manifests.
func WithManifestRoot(dir string) Option {
	requireNonEmpty("manifest root", dir)
	return func(c *config) { c.manifestRoot = dir }
}

// WithNamespace sets the namespace scenario workloads run in and cleanup
// clears. Unset means "default".
func WithNamespace(ns string) Option {
	requireNonEmpty("namespace", ns)
	return func(c *config) { c.namespace = ns }
}

// WithKeepCluster makes Up reuse an existing profile instead of stopping
// and deleting it before start. The default is a fresh cluster: a reused
// profile carries whatever workloads and addon state the last run left
// behind.
func WithKeepCluster() Option {
	return func(c *config) { c.keepCluster = true }
}

// WithStartTimeout bounds one "minikube start" attempt.
func WithStartTimeout(d time.Duration) Option {
	requirePositiveDuration("start timeout", d)
	return func(c *config) { c.startTimeout = d }
}

// WithCommandTimeout bounds every external command other than start.
func WithCommandTimeout(d time.Duration) Option {
	requirePositiveDuration("command timeout", d)
	return func(c *config) { c.commandTimeout = d }
}

// WithLogger sets the Lab's logger. Use SetLogger to change the package
// default instead.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("kubelab: logger must not be nil")
	}
	return func(c *config) { c.logger = l }
}
