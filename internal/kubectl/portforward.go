package kubectl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"time"

	"github.com/giantswarm/kubelab/internal/netutil"
	"github.com/giantswarm/kubelab/internal/process"
)

// Compile-time interface satisfaction check.
var _ process.Stoppable = (*PortForward)(nil)

// forwardPollInterval is the interval between consecutive TCP connection
// attempts when waiting for a port-forward to become ready. kubectl opens
// the local listener quickly once the API connection is up, so a short
// interval keeps the wait snappy.
const forwardPollInterval = 100 * time.Millisecond

// forwardDialTimeout is the per-attempt timeout for the readiness TCP dial.
// Generous for a loopback connection; attempts before the listener exists
// fail immediately with connection refused.
const forwardDialTimeout = time.Second

// PortForwardConfig holds the configuration for a PortForward.
type PortForwardConfig struct {
	Binary     string // kubectl binary name or path
	Context    string // kubeconfig context
	Kubeconfig string // optional explicit kubeconfig path

	Namespace  string // namespace of the target service
	Service    string // service name to forward to
	RemotePort int    // service port to forward to

	DataDir string                // working directory for the forward's log files
	Ports   *netutil.PortRegistry // shared registry for local port allocation

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// PortForward supervises a "kubectl port-forward" child process, exposing a
// service on a kernel-allocated loopback port. It is one of the documented
// workarounds for LoadBalancer services that stay pending on local clusters.
type PortForward struct {
	config    PortForwardConfig
	base      process.BaseProcess
	localPort int // allocated on Start, released on Stop
}

// validate checks that all required PortForwardConfig fields are set.
func (c PortForwardConfig) validate() error {
	var errs []error
	if c.Binary == "" {
		errs = append(errs, errors.New("binary must not be empty"))
	}
	if c.Context == "" {
		errs = append(errs, errors.New("context must not be empty"))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace must not be empty"))
	}
	if c.Service == "" {
		errs = append(errs, errors.New("service must not be empty"))
	}
	if c.RemotePort <= 0 || c.RemotePort > 65535 {
		errs = append(errs, errors.New("remote port must be between 1 and 65535"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	if c.Ports == nil {
		errs = append(errs, errors.New("port registry must not be nil"))
	}
	return errors.Join(errs...)
}

// NewPortForward creates a PortForward. Does not start the process or
// allocate a port.
func NewPortForward(cfg PortForwardConfig) (*PortForward, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid port-forward config: %w", err)
	}
	return &PortForward{
		config: cfg,
		base:   process.NewBaseProcess("port-forward", cfg.Logger, 0),
	}, nil
}

// Start allocates a local port and launches the port-forward process. ctx
// governs the process lifetime (exec.CommandContext); callers typically
// derive it from context.Background so the forward persists until Stop.
func (f *PortForward) Start(ctx context.Context) (retErr error) {
	if f.base.IsStarted() {
		return process.ErrAlreadyStarted
	}

	port, err := f.config.Ports.AllocatePort()
	if err != nil {
		return fmt.Errorf("allocate local port: %w", err)
	}
	f.localPort = port
	defer func() {
		if retErr != nil {
			f.releasePort()
		}
	}()

	args := []string{"--context", f.config.Context}
	if f.config.Kubeconfig != "" {
		args = append(args, "--kubeconfig", f.config.Kubeconfig)
	}
	args = append(args,
		"port-forward",
		"--namespace", f.config.Namespace,
		"service/"+f.config.Service,
		fmt.Sprintf("%d:%d", port, f.config.RemotePort),
	)

	cmd := exec.CommandContext(ctx, f.config.Binary, args...)
	if err := f.base.SetupAndStart(cmd, f.config.DataDir); err != nil {
		return fmt.Errorf("setup and start port-forward process: %w", err)
	}
	return nil
}

// WaitReady polls the local port until it accepts TCP connections, aborting
// early if the port-forward process dies (e.g. because the service does not
// exist).
func (f *PortForward) WaitReady(ctx context.Context, timeout time.Duration) error {
	addr := fmt.Sprintf("127.0.0.1:%d", f.localPort)

	log := f.base.Logger()
	dialer := &net.Dialer{Timeout: forwardDialTimeout}
	if err := process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      forwardPollInterval,
		Timeout:       timeout,
		Name:          "port-forward",
		Logger:        log,
		ProcessExited: f.base.Exited(),
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		conn, err := dialer.DialContext(checkCtx, "tcp", addr)
		if err != nil {
			log.Debug("port-forward readiness attempt", "port", f.localPort, "attempt", attempt, "error", err)
			return false, nil
		}
		_ = conn.Close()
		return true, nil
	}); err != nil {
		return fmt.Errorf("port-forward not ready on %s: %w", addr, err)
	}
	return nil
}

// Exited returns a channel closed when the child process has exited.
func (f *PortForward) Exited() <-chan struct{} {
	return f.base.Exited()
}

// IsStarted reports whether Start has been called successfully.
func (f *PortForward) IsStarted() bool {
	return f.base.IsStarted()
}

// LocalPort returns the allocated loopback port, or 0 before Start.
func (f *PortForward) LocalPort() int {
	return f.localPort
}

// Addr returns the loopback address of the forward (e.g. "127.0.0.1:41327").
func (f *PortForward) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", f.localPort)
}

// Stop terminates the port-forward process and releases the local port.
func (f *PortForward) Stop(timeout time.Duration) error {
	err := f.base.Stop(timeout)
	f.releasePort()
	return err
}

// Close releases log file handles held by the forward.
func (f *PortForward) Close() {
	f.base.Close()
}

// releasePort returns the local port to the registry. No-op when zero.
func (f *PortForward) releasePort() {
	if f.localPort != 0 {
		f.config.Ports.Release(f.localPort)
		f.localPort = 0
	}
}
