package minikube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/giantswarm/kubelab/internal/process"
	"github.com/giantswarm/kubelab/internal/sentinel"
)

// ErrBinaryNotFound is returned by Available when the minikube binary is not
// in PATH.
const ErrBinaryNotFound = sentinel.Error("minikube binary not found in PATH")

// startRetries is the number of additional attempts after a failed
// "minikube start". Start failures on a freshly deleted profile are usually
// transient (driver races, image pulls), and a single retry resolves most of
// them.
const startRetries = 2

// startRetryInitialInterval seeds the exponential backoff between start
// attempts. Restarting a VM or container runtime is heavyweight, so the
// first pause is seconds, not milliseconds.
const startRetryInitialInterval = 5 * time.Second

// hostRunning is the value "minikube status --format={{.Host}}" prints for a
// running cluster host.
const hostRunning = "Running"

// Config holds the configuration for a Cluster.
type Config struct {
	Binary  string // minikube binary name or path (e.g. "minikube")
	Profile string // minikube profile name

	// Start flags, matching the original setup sequence.
	Driver            string   // empty lets minikube pick
	CPUs              int      // --cpus, 0 omits the flag
	MemoryMB          int      // --memory, 0 omits the flag
	DiskSize          string   // --disk-size (e.g. "20g"), empty omits the flag
	KubernetesVersion string   // --kubernetes-version, empty omits the flag
	Addons            []string // enabled after start

	// Fresh tears down any existing profile (stop, then delete) before
	// starting, so the cluster always comes up from a clean slate.
	Fresh bool

	StartTimeout   time.Duration // per start attempt
	CommandTimeout time.Duration // for everything else (status, ip, stop, delete)

	Logger *slog.Logger // optional, defaults to slog.Default()
}

// Cluster wraps one minikube profile's lifecycle commands.
type Cluster struct {
	config Config
	log    *slog.Logger
}

// validate checks required Config fields, reporting every violation at once.
func (c Config) validate() error {
	var errs []error
	if c.Binary == "" {
		errs = append(errs, errors.New("binary must not be empty"))
	}
	if c.Profile == "" {
		errs = append(errs, errors.New("profile must not be empty"))
	}
	if c.StartTimeout <= 0 {
		errs = append(errs, errors.New("start timeout must be positive"))
	}
	if c.CommandTimeout <= 0 {
		errs = append(errs, errors.New("command timeout must be positive"))
	}
	return errors.Join(errs...)
}

// New creates a Cluster. It performs no I/O; binary presence is checked by
// Available and each command reports its own failures.
func New(cfg Config) (*Cluster, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid minikube config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Cluster{config: cfg, log: log}, nil
}

// Profile returns the profile name this cluster operates on.
func (c *Cluster) Profile() string {
	return c.config.Profile
}

// Available reports whether the minikube binary can be found. Returns
// ErrBinaryNotFound (wrapped with the configured name) when it cannot.
func (c *Cluster) Available() error {
	if _, err := exec.LookPath(c.config.Binary); err != nil {
		return fmt.Errorf("%s: %w", c.config.Binary, ErrBinaryNotFound)
	}
	return nil
}

// run invokes one minikube subcommand scoped to this profile.
func (c *Cluster) run(ctx context.Context, timeout time.Duration, args ...string) process.Result {
	full := append([]string{"--profile", c.config.Profile}, args...)
	return process.Run(ctx, c.log, timeout, c.config.Binary, full...)
}

// startArgs assembles the "minikube start" argument list from the config.
func (c *Cluster) startArgs() []string {
	args := []string{"start"}
	if c.config.Driver != "" {
		args = append(args, "--driver="+c.config.Driver)
	}
	if c.config.CPUs > 0 {
		args = append(args, fmt.Sprintf("--cpus=%d", c.config.CPUs))
	}
	if c.config.MemoryMB > 0 {
		args = append(args, fmt.Sprintf("--memory=%d", c.config.MemoryMB))
	}
	if c.config.DiskSize != "" {
		args = append(args, "--disk-size="+c.config.DiskSize)
	}
	if c.config.KubernetesVersion != "" {
		args = append(args, "--kubernetes-version="+c.config.KubernetesVersion)
	}
	// Block until the apiserver and system pods are up so callers can build
	// clients immediately after Start returns.
	args = append(args, "--wait=all", fmt.Sprintf("--wait-timeout=%s", c.config.StartTimeout))
	return args
}

// Start brings the profile up, retrying transient failures with exponential
// backoff. Each attempt gets the full StartTimeout. Addons are enabled after
// a successful start. With Fresh set, any existing profile is stopped and
// deleted first; a leftover profile keeps old workloads and addon state, so
// the original setup sequence always tears it down. Neither command matters
// on a first run, so their failures only log.
func (c *Cluster) Start(ctx context.Context) error {
	if c.config.Fresh {
		if err := c.Stop(ctx); err != nil {
			c.log.Debug("pre-start stop", "error", err)
		}
		if err := c.Delete(ctx); err != nil {
			c.log.Debug("pre-start delete", "error", err)
		}
	}

	args := c.startArgs()

	attempt := 0
	op := func() error {
		attempt++
		res := c.run(ctx, c.config.StartTimeout, args...)
		if err := res.Err(); err != nil {
			c.log.Warn("minikube start attempt failed", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = startRetryInitialInterval
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), startRetries)); err != nil {
		return fmt.Errorf("start minikube profile %s: %w", c.config.Profile, err)
	}
	if attempt > 1 {
		c.log.Info("minikube start succeeded after retry", "attempt", attempt)
	}

	for _, addon := range c.config.Addons {
		if err := c.EnableAddon(ctx, addon); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the profile. A failed stop is reported but commonly ignored by
// callers preparing for Delete, mirroring the original setup sequence.
func (c *Cluster) Stop(ctx context.Context) error {
	if err := c.run(ctx, c.config.CommandTimeout, "stop").Err(); err != nil {
		return fmt.Errorf("stop minikube profile %s: %w", c.config.Profile, err)
	}
	return nil
}

// Delete removes the profile and all its state.
func (c *Cluster) Delete(ctx context.Context) error {
	if err := c.run(ctx, c.config.CommandTimeout, "delete").Err(); err != nil {
		return fmt.Errorf("delete minikube profile %s: %w", c.config.Profile, err)
	}
	return nil
}

// IsRunning reports whether the profile's host is running. Status errors map
// to false: minikube exits non-zero for nonexistent or stopped profiles.
func (c *Cluster) IsRunning(ctx context.Context) bool {
	res := c.run(ctx, c.config.CommandTimeout, "status", "--format={{.Host}}")
	return res.ExitCode == 0 && strings.TrimSpace(res.Stdout) == hostRunning
}

// IP returns the routable IP address of the cluster node.
func (c *Cluster) IP(ctx context.Context) (string, error) {
	res := c.run(ctx, c.config.CommandTimeout, "ip")
	if err := res.Err(); err != nil {
		return "", fmt.Errorf("minikube ip: %w", err)
	}
	ip := strings.TrimSpace(res.Stdout)
	if ip == "" {
		return "", errors.New("minikube ip returned empty output")
	}
	return ip, nil
}

// EnableAddon enables one minikube addon (e.g. "metrics-server").
func (c *Cluster) EnableAddon(ctx context.Context, name string) error {
	if err := c.run(ctx, c.config.CommandTimeout, "addons", "enable", name).Err(); err != nil {
		return fmt.Errorf("enable addon %s: %w", name, err)
	}
	return nil
}
