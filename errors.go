package kubelab

import (
	"github.com/giantswarm/kubelab/internal/kubectl"
	"github.com/giantswarm/kubelab/internal/minikube"
	"github.com/giantswarm/kubelab/internal/readiness"
	"github.com/giantswarm/kubelab/internal/sentinel"
)

const (
	// ErrNotStarted is returned by operations that need a running
	// cluster before Up succeeded.
	ErrNotStarted = sentinel.Error("lab is not started")

	// ErrAlreadyStarted is returned by Up when the Lab is already
	// running.
	ErrAlreadyStarted = sentinel.Error("lab is already started")

	// ErrTunnelNotRunning is returned by StopTunnel without a running
	// tunnel.
	ErrTunnelNotRunning = sentinel.Error("tunnel is not running")

	// ErrTunnelAlreadyRunning is returned by StartTunnel when a tunnel
	// is already up.
	ErrTunnelAlreadyRunning = sentinel.Error("tunnel is already running")

	// ErrClusterNotRunning is returned by Attach when the minikube
	// profile is not up.
	ErrClusterNotRunning = sentinel.Error("cluster is not running")

	// ErrTunnelExited is returned by WaitExternalIP when the tunnel
	// dies while the wait depends on it.
	ErrTunnelExited = sentinel.Error("tunnel exited during wait")
)

// Binary and readiness errors surfaced from the internal packages, so
// callers can match them without importing internals.
const (
	// ErrMinikubeNotFound means the minikube binary is not in PATH.
	ErrMinikubeNotFound = minikube.ErrBinaryNotFound

	// ErrKubectlNotFound means the kubectl binary is not in PATH.
	ErrKubectlNotFound = kubectl.ErrBinaryNotFound

	// ErrExternalIPPending means a LoadBalancer service still shows
	// <pending> after the wait timeout. On minikube without a tunnel
	// this is the expected steady state.
	ErrExternalIPPending = readiness.ErrExternalIPPending
)
