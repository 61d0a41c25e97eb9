package minikube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/giantswarm/kubelab/internal/process"
)

// Compile-time interface satisfaction check.
var _ process.Stoppable = (*Tunnel)(nil)

// TunnelConfig holds the configuration for a tunnel process.
type TunnelConfig struct {
	Binary  string // minikube binary name or path
	Profile string // minikube profile name
	DataDir string // working directory for the tunnel's log files

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Tunnel supervises a "minikube tunnel" child process. While the tunnel
// runs, minikube assigns external IPs to LoadBalancer services, clearing
// their pending state. Stopping the tunnel withdraws the routes; the
// services fall back to pending.
type Tunnel struct {
	config TunnelConfig
	base   process.BaseProcess
}

// validate checks that all required TunnelConfig fields are set.
func (c TunnelConfig) validate() error {
	var errs []error
	if c.Binary == "" {
		errs = append(errs, errors.New("binary must not be empty"))
	}
	if c.Profile == "" {
		errs = append(errs, errors.New("profile must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	return errors.Join(errs...)
}

// NewTunnel creates a Tunnel. Does not start the process.
func NewTunnel(cfg TunnelConfig) (*Tunnel, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid tunnel config: %w", err)
	}
	return &Tunnel{
		config: cfg,
		base:   process.NewBaseProcess("tunnel", cfg.Logger, 0),
	}, nil
}

// Start launches the tunnel process. ctx governs the process lifetime: it is
// passed to exec.CommandContext, so canceling it kills the tunnel. Callers
// typically derive ctx from context.Background so the tunnel persists until
// Stop.
//
// "minikube tunnel" keeps running until signalled; there is no readiness
// endpoint to probe. Readiness is observed downstream by the service
// external-IP wait, which aborts early via Exited if the tunnel dies.
func (t *Tunnel) Start(ctx context.Context) error {
	if t.base.IsStarted() {
		return process.ErrAlreadyStarted
	}

	cmd := exec.CommandContext(ctx, t.config.Binary, "--profile", t.config.Profile, "tunnel")
	if err := t.base.SetupAndStart(cmd, t.config.DataDir); err != nil {
		return fmt.Errorf("setup and start tunnel process: %w", err)
	}
	return nil
}

// Exited returns a channel closed when the tunnel process exits.
// Nil if the tunnel is not running.
func (t *Tunnel) Exited() <-chan struct{} {
	return t.base.Exited()
}

// IsStarted reports whether the tunnel is running.
func (t *Tunnel) IsStarted() bool {
	return t.base.IsStarted()
}

// LogPaths returns the tunnel's stdout and stderr log file paths, the
// first place to look when the tunnel dies or never assigns an IP.
func (t *Tunnel) LogPaths() (stdout, stderr string) {
	return t.base.LogPaths()
}

// Stop terminates the tunnel process with the given timeout.
func (t *Tunnel) Stop(timeout time.Duration) error {
	return t.base.Stop(timeout)
}

// Close releases log file handles held by the tunnel.
func (t *Tunnel) Close() {
	t.base.Close()
}
