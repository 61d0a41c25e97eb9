package kubectl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/kubelab/internal/process"
	"github.com/giantswarm/kubelab/internal/sentinel"
)

// metricsPollInterval paces WaitMetricsReady. metrics-server scrapes
// kubelets every 15s by default, so sub-second polling buys nothing.
const metricsPollInterval = 5 * time.Second

// ErrBinaryNotFound is returned by Available when the kubectl binary is not
// in PATH.
const ErrBinaryNotFound = sentinel.Error("kubectl binary not found in PATH")

// Config holds the configuration for a Runner.
type Config struct {
	Binary     string // kubectl binary name or path (e.g. "kubectl")
	Context    string // kubeconfig context, typically the minikube profile name
	Kubeconfig string // optional explicit kubeconfig path; empty uses defaults

	CommandTimeout time.Duration // per invocation

	Logger *slog.Logger // optional, defaults to slog.Default()
}

// Runner invokes kubectl subcommands against one cluster context.
type Runner struct {
	config Config
	log    *slog.Logger
}

// validate checks required Config fields, reporting every violation at once.
func (c Config) validate() error {
	var errs []error
	if c.Binary == "" {
		errs = append(errs, errors.New("binary must not be empty"))
	}
	if c.Context == "" {
		errs = append(errs, errors.New("context must not be empty"))
	}
	if c.CommandTimeout <= 0 {
		errs = append(errs, errors.New("command timeout must be positive"))
	}
	return errors.Join(errs...)
}

// New creates a Runner. It performs no I/O.
func New(cfg Config) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid kubectl config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{config: cfg, log: log}, nil
}

// Available reports whether the kubectl binary can be found. Returns
// ErrBinaryNotFound (wrapped with the configured name) when it cannot.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.config.Binary); err != nil {
		return fmt.Errorf("%s: %w", r.config.Binary, ErrBinaryNotFound)
	}
	return nil
}

// contextArgs returns the connection flags prepended to every invocation.
func (r *Runner) contextArgs() []string {
	args := []string{"--context", r.config.Context}
	if r.config.Kubeconfig != "" {
		args = append(args, "--kubeconfig", r.config.Kubeconfig)
	}
	return args
}

// run invokes one kubectl subcommand scoped to the configured context.
func (r *Runner) run(ctx context.Context, timeout time.Duration, args ...string) process.Result {
	full := append(r.contextArgs(), args...)
	return process.Run(ctx, r.log, timeout, r.config.Binary, full...)
}

// Apply applies one or more manifest files or directories.
func (r *Runner) Apply(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("apply: at least one path is required")
	}
	args := []string{"apply"}
	for _, p := range paths {
		args = append(args, "-f", p)
	}
	if err := r.run(ctx, r.config.CommandTimeout, args...).Err(); err != nil {
		return fmt.Errorf("kubectl apply: %w", err)
	}
	return nil
}

// Delete deletes the resources defined in the given manifest files. Missing
// resources are ignored so cleanup can run against a half-deployed scenario.
func (r *Runner) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("delete: at least one path is required")
	}
	args := []string{"delete", "--ignore-not-found"}
	for _, p := range paths {
		args = append(args, "-f", p)
	}
	if err := r.run(ctx, r.config.CommandTimeout, args...).Err(); err != nil {
		return fmt.Errorf("kubectl delete: %w", err)
	}
	return nil
}

// DeleteAll deletes every workload object in the given namespace
// ("kubectl delete all --all"), the cleanup step between scenario runs.
func (r *Runner) DeleteAll(ctx context.Context, namespace string) error {
	if namespace == "" {
		return errors.New("delete all: namespace must not be empty")
	}
	if err := r.run(ctx, r.config.CommandTimeout, "delete", "all", "--all", "-n", namespace).Err(); err != nil {
		return fmt.Errorf("kubectl delete all in %s: %w", namespace, err)
	}
	return nil
}

// RolloutStatus waits for deployment rollouts to complete, bounded by
// timeout. The kubectl-side --timeout flag matches the process timeout so
// the subprocess exits on its own rather than being killed.
func (r *Runner) RolloutStatus(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		return errors.New("rollout status: timeout must be positive")
	}
	res := r.run(ctx, timeout+time.Second,
		"rollout", "status", "deployment", "--all-namespaces", fmt.Sprintf("--timeout=%s", timeout))
	if err := res.Err(); err != nil {
		return fmt.Errorf("kubectl rollout status: %w", err)
	}
	return nil
}

// Version returns the client version string, primarily for startup
// logging. It does not contact the cluster.
func (r *Runner) Version(ctx context.Context) (string, error) {
	res := process.Run(ctx, r.log, r.config.CommandTimeout, r.config.Binary, "version", "--client", "--output=yaml")
	if err := res.Err(); err != nil {
		return "", fmt.Errorf("kubectl version: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// WaitMetricsReady polls "kubectl top nodes" until the metrics API serves
// data. metrics-server needs time after addon enablement before top
// commands stop failing with "metrics not available yet".
func (r *Runner) WaitMetricsReady(ctx context.Context, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, metricsPollInterval, timeout, true,
		func(ctx context.Context) (bool, error) {
			return r.run(ctx, r.config.CommandTimeout, "top", "nodes").ExitCode == 0, nil
		})
	if err != nil {
		return fmt.Errorf("waiting for node metrics: %w", err)
	}
	return nil
}

// Snapshot runs an arbitrary kubectl command and returns the raw Result.
// The output is archived by the collector for humans to read; it is never
// parsed, and a non-zero exit is recorded rather than returned as an error.
func (r *Runner) Snapshot(ctx context.Context, args ...string) process.Result {
	return r.run(ctx, r.config.CommandTimeout, args...)
}
