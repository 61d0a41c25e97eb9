package kubelab

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	lab := New()
	if lab.Profile() != DefaultProfile {
		t.Errorf("profile = %q, want %q", lab.Profile(), DefaultProfile)
	}
	if lab.config.cpus != DefaultCPUs || lab.config.memoryMB != DefaultMemoryMB {
		t.Errorf("resources = %d/%d", lab.config.cpus, lab.config.memoryMB)
	}
	if lab.config.diskSize != DefaultDiskSize {
		t.Errorf("disk size = %q", lab.config.diskSize)
	}
	if len(lab.config.addons) != 1 || lab.config.addons[0] != "metrics-server" {
		t.Errorf("addons = %v", lab.config.addons)
	}
	if !strings.Contains(lab.config.dataDir, filepath.Join("kubelab", DefaultProfile)) {
		t.Errorf("data dir = %q", lab.config.dataDir)
	}
	if lab.config.keepCluster {
		t.Error("clusters should be provisioned fresh by default")
	}
}

func TestNewWithOptions(t *testing.T) {
	t.Parallel()

	lab := New(
		WithProfile("demo"),
		WithDataDir(t.TempDir()),
		WithOutputDir(t.TempDir()),
		WithNamespace("workloads"),
	)
	if lab.Profile() != "demo" {
		t.Errorf("profile = %q, want demo", lab.Profile())
	}
	if lab.config.namespace != "workloads" {
		t.Errorf("namespace = %q", lab.config.namespace)
	}
}

func TestOperationsRequireUp(t *testing.T) {
	t.Parallel()

	lab := New(WithProfile("not-started"), WithDataDir(t.TempDir()))
	ctx := context.Background()

	if _, err := lab.Client(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Client: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.RESTConfig(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("RESTConfig: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.Apply(ctx, "manifests"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Apply: got %v, want ErrNotStarted", err)
	}
	if err := lab.WaitRollout(ctx, time.Second); !errors.Is(err, ErrNotStarted) {
		t.Errorf("WaitRollout: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.ServiceStatus(ctx, "default", "web"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("ServiceStatus: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.WaitExternalIP(ctx, "default", "web", time.Second); !errors.Is(err, ErrNotStarted) {
		t.Errorf("WaitExternalIP: got %v, want ErrNotStarted", err)
	}
	if err := lab.StartTunnel(ctx); !errors.Is(err, ErrNotStarted) {
		t.Errorf("StartTunnel: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.StartPortForward(ctx, "default", "web", 80, time.Second); !errors.Is(err, ErrNotStarted) {
		t.Errorf("StartPortForward: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.Collect(ctx, "healthy"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Collect: got %v, want ErrNotStarted", err)
	}
	if _, err := lab.RunScenarios(ctx); !errors.Is(err, ErrNotStarted) {
		t.Errorf("RunScenarios: got %v, want ErrNotStarted", err)
	}
	if err := lab.Cleanup(ctx); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Cleanup: got %v, want ErrNotStarted", err)
	}
}

func TestStopTunnelWithoutTunnel(t *testing.T) {
	t.Parallel()

	lab := New(WithProfile("no-tunnel"), WithDataDir(t.TempDir()))
	if err := lab.StopTunnel(); !errors.Is(err, ErrTunnelNotRunning) {
		t.Errorf("got %v, want ErrTunnelNotRunning", err)
	}
	if lab.TunnelRunning() {
		t.Error("TunnelRunning() = true on a fresh lab")
	}
}

func TestCloseBeforeUp(t *testing.T) {
	t.Parallel()

	lab := New(WithProfile("close-early"), WithDataDir(t.TempDir()))
	lab.Close()
	lab.Close()
}

func TestPreflightMissingBinaries(t *testing.T) {
	t.Parallel()

	lab := New(
		WithProfile("missing"),
		WithDataDir(t.TempDir()),
		WithMinikubeBinary("definitely-not-minikube-xyz"),
	)
	if err := lab.Preflight(); !errors.Is(err, ErrMinikubeNotFound) {
		t.Errorf("got %v, want ErrMinikubeNotFound", err)
	}

	lab = New(
		WithProfile("missing"),
		WithDataDir(t.TempDir()),
		WithMinikubeBinary("true"),
		WithKubectlBinary("definitely-not-kubectl-xyz"),
	)
	if err := lab.Preflight(); !errors.Is(err, ErrKubectlNotFound) {
		t.Errorf("got %v, want ErrKubectlNotFound", err)
	}
}

func TestBuiltinScenarios(t *testing.T) {
	t.Parallel()

	scenarios := BuiltinScenarios("manifests")
	if len(scenarios) != 2 {
		t.Fatalf("got %d scenarios, want 2", len(scenarios))
	}
	names := map[string]bool{}
	for _, sc := range scenarios {
		names[sc.Name] = true
	}
	if !names["sick"] || !names["healthy"] {
		t.Errorf("scenario names = %v", names)
	}
}

func TestPendingConstant(t *testing.T) {
	t.Parallel()

	if PendingExternalIP != "<pending>" {
		t.Errorf("PendingExternalIP = %q", PendingExternalIP)
	}
}
