package kubelab

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/kubelab/internal/collect"
	"github.com/giantswarm/kubelab/internal/fileutil"
	"github.com/giantswarm/kubelab/internal/kubectl"
	"github.com/giantswarm/kubelab/internal/logging"
	"github.com/giantswarm/kubelab/internal/manifest"
	"github.com/giantswarm/kubelab/internal/minikube"
	"github.com/giantswarm/kubelab/internal/netutil"
	"github.com/giantswarm/kubelab/internal/process"
	"github.com/giantswarm/kubelab/internal/readiness"
	"github.com/giantswarm/kubelab/internal/scenario"
)

// Re-exported types so callers never import internal packages.
type (
	// Scenario is one reproducible cluster state.
	Scenario = scenario.Scenario
	// Report is the archived outcome of one assessment run.
	Report = collect.Report
	// RunRecord is one row of the archived-run index.
	RunRecord = collect.Run
	// ServiceStatus is a kubectl-style view of one service.
	ServiceStatus = readiness.ServiceStatus
)

// PendingExternalIP is the EXTERNAL-IP rendering of an unprovisioned
// LoadBalancer service.
const PendingExternalIP = readiness.PendingExternalIP

// nodeReadyTimeout bounds the post-start wait for a Ready node. minikube
// start already waits for core components, so this is a backstop.
const nodeReadyTimeout = 2 * time.Minute

// metricsReadyTimeout bounds the wait for the metrics-server addon to serve
// node metrics. The top_nodes and top_pods assessments fail until it does.
const metricsReadyTimeout = 2 * time.Minute

// crdEstablishTimeout bounds the post-start wait for addon CRDs. A bare
// cluster has none and the wait returns immediately.
const crdEstablishTimeout = time.Minute

// BuiltinScenarios returns the stock sick and healthy scenarios rooted
// under manifestRoot.
func BuiltinScenarios(manifestRoot string) []Scenario {
	return scenario.Builtins(manifestRoot)
}

// LoadScenarios reads scenario definitions from a YAML file.
func LoadScenarios(path string) ([]Scenario, error) {
	return scenario.Load(path)
}

// Lab owns one minikube profile: the cluster lifecycle, API clients,
// scenario workloads, the pending-IP workarounds, and assessment
// archiving. A Lab is safe for concurrent use.
type Lab struct {
	config  config
	log     *slog.Logger
	cluster *minikube.Cluster
	kubectl *kubectl.Runner
	ports   *netutil.PortRegistry

	mu       sync.Mutex
	started  bool
	restCfg  *rest.Config
	client   kubernetes.Interface
	tunnel   *minikube.Tunnel
	forwards []*kubectl.PortForward
}

// New assembles a Lab from defaults and options. It performs no I/O; the
// cluster comes up with Up.
func New(opts ...Option) *Lab {
	cfg := config{
		profile:        DefaultProfile,
		minikubeBinary: DefaultMinikubeBinary,
		kubectlBinary:  DefaultKubectlBinary,
		cpus:           DefaultCPUs,
		memoryMB:       DefaultMemoryMB,
		diskSize:       DefaultDiskSize,
		addons:         defaultAddons(),
		outputDir:      DefaultOutputDir,
		manifestRoot:   DefaultManifestRoot,
		startTimeout:   DefaultStartTimeout,
		commandTimeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Logger()
	}
	if cfg.dataDir == "" {
		cfg.dataDir = filepath.Join(os.TempDir(), "kubelab", cfg.profile)
	}
	log := cfg.logger.With("profile", cfg.profile)

	cluster, err := minikube.New(minikube.Config{
		Binary:            cfg.minikubeBinary,
		Profile:           cfg.profile,
		Driver:            cfg.driver,
		CPUs:              cfg.cpus,
		MemoryMB:          cfg.memoryMB,
		DiskSize:          cfg.diskSize,
		KubernetesVersion: cfg.kubernetesVersion,
		Addons:            cfg.addons,
		Fresh:             !cfg.keepCluster,
		StartTimeout:      cfg.startTimeout,
		CommandTimeout:    cfg.commandTimeout,
		Logger:            log,
	})
	if err != nil {
		// Defaults and option validation make this unreachable.
		panic(fmt.Sprintf("kubelab: %v", err))
	}
	runner, err := kubectl.New(kubectl.Config{
		Binary:         cfg.kubectlBinary,
		Context:        cfg.profile,
		Kubeconfig:     cfg.kubeconfig,
		CommandTimeout: cfg.commandTimeout,
		Logger:         log,
	})
	if err != nil {
		panic(fmt.Sprintf("kubelab: %v", err))
	}

	return &Lab{
		config:  cfg,
		log:     log,
		cluster: cluster,
		kubectl: runner,
		ports:   netutil.NewPortRegistry(log),
	}
}

// Profile returns the minikube profile name.
func (l *Lab) Profile() string {
	return l.config.profile
}

// Preflight verifies both external binaries are present. Up calls it, but
// CLIs run it separately to fail fast with a clear message.
func (l *Lab) Preflight() error {
	if err := l.cluster.Available(); err != nil {
		return err
	}
	return l.kubectl.Available()
}

// Up provisions the minikube cluster (from a clean slate unless
// WithKeepCluster was set), enables the configured addons, builds the API
// clients, and waits for a Ready node. It is the prerequisite for every
// other operation.
func (l *Lab) Up(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}

	if err := l.Preflight(); err != nil {
		return err
	}
	if v, err := l.kubectl.Version(ctx); err == nil {
		l.log.Debug("kubectl client", "version", v)
	}
	if err := fileutil.EnsureDir(l.config.dataDir); err != nil {
		return err
	}

	if err := l.cluster.Start(ctx); err != nil {
		return err
	}

	restCfg, err := l.buildRESTConfig()
	if err != nil {
		return err
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating kubernetes client: %w", err)
	}

	if err := readiness.WaitNodeReady(ctx, client, nodeReadyTimeout, l.log); err != nil {
		return err
	}
	// Addons such as metrics-server may register CRDs; wait until they
	// are served before callers start applying manifests.
	if err := manifest.WaitEstablished(ctx, restCfg, crdEstablishTimeout, l.log); err != nil {
		return err
	}
	if slices.Contains(l.config.addons, "metrics-server") {
		// Without this, an immediate collection archives failing top_nodes
		// and top_pods snapshots. Not fatal: the archive tolerates them.
		if err := l.kubectl.WaitMetricsReady(ctx, metricsReadyTimeout); err != nil {
			l.log.Warn("node metrics not serving yet, top assessments may fail", "error", err)
		}
	}

	l.restCfg = restCfg
	l.client = client
	l.started = true
	l.log.Info("lab is up")
	return nil
}

// Attach builds the API clients against an already-running cluster
// without starting or mutating it. It fails with ErrClusterNotRunning
// when the profile's host is not up.
func (l *Lab) Attach(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}

	if err := l.Preflight(); err != nil {
		return err
	}
	if err := fileutil.EnsureDir(l.config.dataDir); err != nil {
		return err
	}
	if !l.cluster.IsRunning(ctx) {
		return fmt.Errorf("profile %q: %w", l.config.profile, ErrClusterNotRunning)
	}

	restCfg, err := l.buildRESTConfig()
	if err != nil {
		return err
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating kubernetes client: %w", err)
	}

	l.restCfg = restCfg
	l.client = client
	l.started = true
	return nil
}

// buildRESTConfig loads the kubeconfig minikube wrote, pinned to the
// Lab's context.
func (l *Lab) buildRESTConfig() (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if l.config.kubeconfig != "" {
		rules.ExplicitPath = l.config.kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: l.config.profile}
	restCfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig for context %q: %w", l.config.profile, err)
	}
	return restCfg, nil
}

// Down stops the cluster, keeping its state on disk. Running tunnels and
// port-forwards are stopped first.
func (l *Lab) Down(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopChildrenLocked()
	if err := l.cluster.Stop(ctx); err != nil {
		return err
	}
	l.resetLocked()
	return nil
}

// Delete tears the cluster profile down completely.
func (l *Lab) Delete(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopChildrenLocked()
	if err := l.cluster.Delete(ctx); err != nil {
		return err
	}
	l.resetLocked()
	return nil
}

// Close stops child processes and drops the API clients without touching
// the cluster. Safe to call multiple times and before Up.
func (l *Lab) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopChildrenLocked()
	l.resetLocked()
}

func (l *Lab) resetLocked() {
	l.started = false
	l.restCfg = nil
	l.client = nil
}

func (l *Lab) stopChildrenLocked() {
	if err := process.StopCloseAndNil(&l.tunnel, process.DefaultStopTimeout); err != nil {
		l.log.Warn("stopping tunnel failed", "error", err)
	}
	for _, f := range l.forwards {
		f.Close()
	}
	l.forwards = nil
}

// Client returns the Kubernetes clientset. It requires Up.
func (l *Lab) Client() (kubernetes.Interface, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, ErrNotStarted
	}
	return l.client, nil
}

// RESTConfig returns a copy of the REST config pinned to the Lab's
// context. It requires Up.
func (l *Lab) RESTConfig() (*rest.Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, ErrNotStarted
	}
	return rest.CopyConfig(l.restCfg), nil
}

func (l *Lab) requireStarted() (kubernetes.Interface, *rest.Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, nil, ErrNotStarted
	}
	return l.client, l.restCfg, nil
}

// NodeIP returns the cluster node's routable address, the host half of
// reaching a NodePort service at <node-ip>:<node-port>.
func (l *Lab) NodeIP(ctx context.Context) (string, error) {
	if _, _, err := l.requireStarted(); err != nil {
		return "", err
	}
	return l.cluster.IP(ctx)
}

// Apply pushes manifests (files or directories) through the API server
// using a dynamic client, creating or updating as needed. It returns the
// number of documents applied.
func (l *Lab) Apply(ctx context.Context, paths ...string) (int, error) {
	_, restCfg, err := l.requireStarted()
	if err != nil {
		return 0, err
	}
	applier, err := manifest.NewApplier(restCfg, l.log)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return total, fmt.Errorf("stat %q: %w", path, err)
		}
		var n int
		if info.IsDir() {
			n, err = applier.ApplyDir(ctx, path)
		} else {
			n, err = applier.ApplyFile(ctx, path)
		}
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WaitRollout blocks until every deployment in the cluster reports a
// complete rollout, or the timeout elapses.
func (l *Lab) WaitRollout(ctx context.Context, timeout time.Duration) error {
	if _, _, err := l.requireStarted(); err != nil {
		return err
	}
	return l.kubectl.RolloutStatus(ctx, timeout)
}

// WaitDeploymentAvailable blocks until the named deployment has all
// desired replicas available.
func (l *Lab) WaitDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	client, _, err := l.requireStarted()
	if err != nil {
		return err
	}
	return readiness.WaitDeploymentAvailable(ctx, client, namespace, name, timeout, l.log)
}

// ServiceStatus reads one service's current state through the API.
func (l *Lab) ServiceStatus(ctx context.Context, namespace, name string) (ServiceStatus, error) {
	client, _, err := l.requireStarted()
	if err != nil {
		return ServiceStatus{}, err
	}
	return readiness.GetServiceStatus(ctx, client, namespace, name)
}

// WaitExternalIP polls a service until it has an external address or the
// timeout elapses. Without a running tunnel a LoadBalancer on minikube
// never gets one; the returned error then wraps ErrExternalIPPending and
// the status still carries the last observation.
func (l *Lab) WaitExternalIP(ctx context.Context, namespace, name string, timeout time.Duration) (ServiceStatus, error) {
	client, _, err := l.requireStarted()
	if err != nil {
		return ServiceStatus{}, err
	}

	// If a tunnel is up, the wait only succeeds while it stays up.
	// Abort early when it dies instead of polling out the timeout.
	l.mu.Lock()
	var tunnelExited <-chan struct{}
	if l.tunnel != nil && l.tunnel.IsStarted() {
		tunnelExited = l.tunnel.Exited()
	}
	l.mu.Unlock()

	waitCtx := ctx
	if tunnelExited != nil {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-tunnelExited:
				cancel()
			case <-waitCtx.Done():
			}
		}()
	}

	status, err := readiness.WaitServiceExternalIP(waitCtx, client, namespace, name, timeout, l.log)
	if err != nil && tunnelExited != nil {
		select {
		case <-tunnelExited:
			return status, fmt.Errorf("waiting for external IP of %s: %w", name, ErrTunnelExited)
		default:
		}
	}
	return status, err
}

// StartTunnel launches "minikube tunnel", the workaround that makes
// minikube assign external IPs to LoadBalancer services for as long as
// the process runs.
func (l *Lab) StartTunnel(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return ErrNotStarted
	}
	if l.tunnel != nil && l.tunnel.IsStarted() {
		return ErrTunnelAlreadyRunning
	}

	tunnel, err := minikube.NewTunnel(minikube.TunnelConfig{
		Binary:  l.config.minikubeBinary,
		Profile: l.config.profile,
		DataDir: l.config.dataDir,
		Logger:  l.log,
	})
	if err != nil {
		return err
	}
	if err := tunnel.Start(ctx); err != nil {
		return err
	}
	l.tunnel = tunnel
	stdout, stderr := tunnel.LogPaths()
	l.log.Info("tunnel started", "profile", l.config.profile,
		"stdout_log", stdout, "stderr_log", stderr)
	return nil
}

// StopTunnel terminates the tunnel. Provisioned external IPs return to
// <pending> shortly after.
func (l *Lab) StopTunnel() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tunnel == nil || !l.tunnel.IsStarted() {
		return ErrTunnelNotRunning
	}
	return process.StopCloseAndNil(&l.tunnel, process.DefaultStopTimeout)
}

// TunnelRunning reports whether a tunnel child process is up.
func (l *Lab) TunnelRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tunnel != nil && l.tunnel.IsStarted()
}

// StartPortForward launches "kubectl port-forward" from a kernel-assigned
// loopback port to the given service port and waits until the local port
// accepts connections. The forward stays up until its Stop or Close, or
// the Lab's Close.
func (l *Lab) StartPortForward(ctx context.Context, namespace, service string, remotePort int, readyTimeout time.Duration) (*kubectl.PortForward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, ErrNotStarted
	}

	forward, err := kubectl.NewPortForward(kubectl.PortForwardConfig{
		Binary:     l.config.kubectlBinary,
		Context:    l.config.profile,
		Kubeconfig: l.config.kubeconfig,
		Namespace:  namespace,
		Service:    service,
		RemotePort: remotePort,
		DataDir:    l.config.dataDir,
		Ports:      l.ports,
		Logger:     l.log,
	})
	if err != nil {
		return nil, err
	}
	if err := forward.Start(ctx); err != nil {
		return nil, err
	}
	if err := forward.WaitReady(ctx, readyTimeout); err != nil {
		forward.Close()
		return nil, err
	}
	l.forwards = append(l.forwards, forward)
	return forward, nil
}

// Collect runs the kubectl assessment battery, labels the archive with
// the scenario name, and records the run in the output directory's index.
func (l *Lab) Collect(ctx context.Context, scenarioName string) (*Report, error) {
	if _, _, err := l.requireStarted(); err != nil {
		return nil, err
	}
	collector, err := l.newCollector()
	if err != nil {
		return nil, err
	}
	return collector.Run(ctx, scenarioName)
}

// RunScenarios drives each scenario through apply, settle, collect, and
// cleanup, in order, stopping at the first failure.
func (l *Lab) RunScenarios(ctx context.Context, scenarios ...Scenario) ([]*Report, error) {
	client, _, err := l.requireStarted()
	if err != nil {
		return nil, err
	}
	collector, err := l.newCollector()
	if err != nil {
		return nil, err
	}
	runner, err := scenario.NewRunner(scenario.RunnerConfig{
		Kubectl:   l.kubectl,
		Collector: collector,
		Namespace: l.config.namespace,
		ServiceStatus: func(ctx context.Context, namespace, name string) (ServiceStatus, error) {
			return readiness.GetServiceStatus(ctx, client, namespace, name)
		},
		Logger: l.log,
	})
	if err != nil {
		return nil, err
	}
	return runner.RunAll(ctx, scenarios)
}

// Cleanup deletes every workload object in the scenario namespace.
func (l *Lab) Cleanup(ctx context.Context) error {
	if _, _, err := l.requireStarted(); err != nil {
		return err
	}
	ns := l.config.namespace
	if ns == "" {
		ns = "default"
	}
	return l.kubectl.DeleteAll(ctx, ns)
}

// RecentRuns lists archived assessment runs, newest first.
func (l *Lab) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	index, err := collect.OpenIndex(filepath.Join(l.config.outputDir, collect.IndexFileName))
	if err != nil {
		return nil, err
	}
	defer index.Close()
	return index.Recent(ctx, limit)
}

func (l *Lab) newCollector() (*collect.Collector, error) {
	return collect.New(collect.Config{
		ClusterID: l.config.profile,
		OutputDir: l.config.outputDir,
		Kubectl:   l.kubectl,
		Logger:    l.log,
	})
}
