package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/giantswarm/kubelab/internal/collect"
	"github.com/giantswarm/kubelab/internal/fileutil"
	"github.com/giantswarm/kubelab/internal/kubectl"
	"github.com/giantswarm/kubelab/internal/logging"
	"github.com/giantswarm/kubelab/internal/manifest"
	"github.com/giantswarm/kubelab/internal/readiness"
)

// ServiceStatusFunc reads the current state of a service. Its shape
// matches readiness.GetServiceStatus with a bound client.
type ServiceStatusFunc func(ctx context.Context, namespace, name string) (readiness.ServiceStatus, error)

// defaultCleanupSettle is the pause after `kubectl delete all --all` so
// terminating pods are gone before the next scenario applies.
const defaultCleanupSettle = 10 * time.Second

// RunnerConfig describes a Runner.
type RunnerConfig struct {
	// Kubectl applies and deletes the scenario manifests.
	Kubectl *kubectl.Runner
	// Collector archives the assessment output.
	Collector *collect.Collector
	// Namespace is where scenario workloads live and what cleanup
	// clears. Empty means "default".
	Namespace string
	// CleanupSettle overrides the pause after cleanup. Zero means the
	// default.
	CleanupSettle time.Duration
	// ServiceStatus, when set, lets the runner photograph the scenario
	// service's external-IP state before collecting.
	ServiceStatus ServiceStatusFunc
	// Logger defaults to the package logger when nil.
	Logger *slog.Logger
}

// Runner executes scenarios end to end.
type Runner struct {
	kubectl       *kubectl.Runner
	collector     *collect.Collector
	namespace     string
	cleanupSettle time.Duration
	status        ServiceStatusFunc
	log           *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Kubectl == nil {
		return nil, fmt.Errorf("kubectl runner must not be nil")
	}
	if cfg.Collector == nil {
		return nil, fmt.Errorf("collector must not be nil")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = metav1.NamespaceDefault
	}
	if cfg.CleanupSettle <= 0 {
		cfg.CleanupSettle = defaultCleanupSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Logger()
	}
	return &Runner{
		kubectl:       cfg.Kubectl,
		collector:     cfg.Collector,
		namespace:     cfg.Namespace,
		cleanupSettle: cfg.CleanupSettle,
		status:        cfg.ServiceStatus,
		log:           cfg.Logger,
	}, nil
}

// Run takes one scenario through apply, settle, collect, and cleanup. A
// failed rollout does not abort the run: broken workloads are exactly what
// the "sick" scenario wants to photograph. Cleanup runs even when
// collection fails.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*collect.Report, error) {
	sc = sc.withDefaults()
	if err := sc.validate(); err != nil {
		return nil, err
	}
	log := r.log.With("scenario", sc.Name)

	log.Info("applying scenario manifests", "dir", sc.ManifestDir)
	if err := r.kubectl.Apply(ctx, sc.ManifestDir); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	if err := r.kubectl.RolloutStatus(ctx, sc.RolloutTimeout); err != nil {
		log.Warn("rollout did not complete, collecting anyway", "error", err)
	}

	log.Info("letting cluster settle", "delay", sc.SettleDelay)
	if err := sleepCtx(ctx, sc.SettleDelay); err != nil {
		return nil, err
	}

	r.checkService(ctx, sc, log)

	report, collectErr := r.collector.Run(ctx, sc.Name)
	if collectErr == nil {
		r.archiveManifests(sc, report, log)
	}

	if err := r.cleanup(ctx); err != nil {
		log.Warn("scenario cleanup failed", "error", err)
	}

	if collectErr != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, collectErr)
	}
	log.Info("scenario complete", "report", report.Path)
	return report, nil
}

// RunAll runs the scenarios in order, stopping at the first failure.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]*collect.Report, error) {
	reports := make([]*collect.Report, 0, len(scenarios))
	for _, sc := range scenarios {
		report, err := r.Run(ctx, sc)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// checkService records the scenario service's external-IP state. A
// pending LoadBalancer is the expected observation on minikube, so
// mismatches with ExpectPending are logged, never fatal.
func (r *Runner) checkService(ctx context.Context, sc Scenario, log *slog.Logger) {
	if sc.Service == "" || r.status == nil {
		return
	}
	st, err := r.status(ctx, r.namespace, sc.Service)
	if err != nil {
		log.Warn("reading service status failed", "service", sc.Service, "error", err)
		return
	}
	log.Info("service state before collection",
		"service", sc.Service, "type", st.Type, "external_ip", st.ExternalIP())
	if sc.ExpectPending && !st.Pending() {
		log.Warn("expected a pending external IP but one is assigned",
			"service", sc.Service, "external_ip", st.ExternalIP())
	}
}

// archiveManifests copies the scenario's manifest files next to the
// assessment output so each archive records exactly what was deployed.
// Archival is best effort and never fails the run.
func (r *Runner) archiveManifests(sc Scenario, report *collect.Report, log *slog.Logger) {
	files, err := manifest.WalkYAMLFiles(sc.ManifestDir)
	if err != nil {
		log.Warn("listing scenario manifests for archival failed", "error", err)
		return
	}
	dir := filepath.Join(r.collector.OutputDir(),
		fmt.Sprintf("%s-%s-manifests", report.ClusterID, sc.Name))
	for _, file := range files {
		dst := filepath.Join(dir, filepath.Base(file))
		if err := fileutil.CopyFile(file, dst, fileutil.CopyOptions{}); err != nil {
			log.Warn("archiving manifest failed", "file", file, "error", err)
		}
	}
}

// cleanup deletes every workload object in the scenario namespace and
// waits for terminating pods to drain.
func (r *Runner) cleanup(ctx context.Context) error {
	r.log.Info("cleaning up scenario resources", "namespace", r.namespace)
	if err := r.kubectl.DeleteAll(ctx, r.namespace); err != nil {
		return err
	}
	return sleepCtx(ctx, r.cleanupSettle)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
