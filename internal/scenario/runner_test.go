package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/giantswarm/kubelab/internal/collect"
	"github.com/giantswarm/kubelab/internal/kubectl"
	"github.com/giantswarm/kubelab/internal/readiness"
)

func testKubectl(t *testing.T, binary string) *kubectl.Runner {
	t.Helper()
	r, err := kubectl.New(kubectl.Config{
		Binary:         binary,
		Context:        "kubelab",
		CommandTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("kubectl.New: %v", err)
	}
	return r
}

func testCollector(t *testing.T, k *kubectl.Runner) *collect.Collector {
	t.Helper()
	c, err := collect.New(collect.Config{
		ClusterID: "lab-test",
		OutputDir: t.TempDir(),
		Kubectl:   k,
	})
	if err != nil {
		t.Fatalf("collect.New: %v", err)
	}
	return c
}

func TestNewRunnerValidation(t *testing.T) {
	t.Parallel()

	k := testKubectl(t, "echo")
	c := testCollector(t, k)

	if _, err := NewRunner(RunnerConfig{Collector: c}); err == nil {
		t.Error("expected error for nil kubectl")
	}
	if _, err := NewRunner(RunnerConfig{Kubectl: k}); err == nil {
		t.Error("expected error for nil collector")
	}
	r, err := NewRunner(RunnerConfig{Kubectl: k, Collector: c})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if r.namespace != "default" {
		t.Errorf("namespace = %q, want default", r.namespace)
	}
	if r.cleanupSettle != defaultCleanupSettle {
		t.Errorf("cleanup settle = %s, want %s", r.cleanupSettle, defaultCleanupSettle)
	}
}

func TestRunInvalidScenario(t *testing.T) {
	t.Parallel()

	k := testKubectl(t, "echo")
	r, err := NewRunner(RunnerConfig{Kubectl: k, Collector: testCollector(t, k), CleanupSettle: time.Millisecond})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	_, err = r.Run(context.Background(), Scenario{ManifestDir: "x"})
	if !errors.Is(err, ErrEmptyName) {
		t.Errorf("got %v, want ErrEmptyName", err)
	}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	// echo accepts any arguments, so apply, rollout, collection, and
	// cleanup all "succeed" while exercising the full sequencing.
	k := testKubectl(t, "echo")
	r, err := NewRunner(RunnerConfig{Kubectl: k, Collector: testCollector(t, k), CleanupSettle: time.Millisecond})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sc := Scenario{
		Name:           "healthy",
		ManifestDir:    t.TempDir(),
		SettleDelay:    time.Millisecond,
		RolloutTimeout: time.Second,
	}
	report, err := r.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Scenario != "healthy" {
		t.Errorf("report scenario = %q, want healthy", report.Scenario)
	}
	if len(report.Assessments) == 0 {
		t.Error("report has no assessments")
	}
}

func TestRunArchivesManifests(t *testing.T) {
	t.Parallel()

	k := testKubectl(t, "echo")
	c := testCollector(t, k)
	r, err := NewRunner(RunnerConfig{Kubectl: k, Collector: c, CleanupSettle: time.Millisecond})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	manifestDir := t.TempDir()
	want := []byte("apiVersion: v1\nkind: Service\n")
	if err := os.WriteFile(filepath.Join(manifestDir, "service.yaml"), want, 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	sc := Scenario{
		Name:           "healthy",
		ManifestDir:    manifestDir,
		SettleDelay:    time.Millisecond,
		RolloutTimeout: time.Second,
	}
	if _, err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	archived := filepath.Join(c.OutputDir(), "lab-test-healthy-manifests", "service.yaml")
	got, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("reading archived manifest: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("archived manifest = %q, want %q", got, want)
	}
}

func TestRunApplyFailure(t *testing.T) {
	t.Parallel()

	k := testKubectl(t, "false")
	r, err := NewRunner(RunnerConfig{Kubectl: k, Collector: testCollector(t, k), CleanupSettle: time.Millisecond})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sc := Scenario{
		Name:           "sick",
		ManifestDir:    t.TempDir(),
		SettleDelay:    time.Millisecond,
		RolloutTimeout: time.Second,
	}
	if _, err := r.Run(context.Background(), sc); err == nil {
		t.Error("expected error when apply fails")
	}
}

func TestRunCanceledDuringSettle(t *testing.T) {
	t.Parallel()

	k := testKubectl(t, "echo")
	r, err := NewRunner(RunnerConfig{Kubectl: k, Collector: testCollector(t, k), CleanupSettle: time.Millisecond})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	sc := Scenario{
		Name:           "healthy",
		ManifestDir:    t.TempDir(),
		SettleDelay:    time.Minute,
		RolloutTimeout: time.Second,
	}
	_, err = r.Run(ctx, sc)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestRunServiceCheck(t *testing.T) {
	t.Parallel()

	k := testKubectl(t, "echo")
	var gotNamespace, gotName string
	r, err := NewRunner(RunnerConfig{
		Kubectl:       k,
		Collector:     testCollector(t, k),
		CleanupSettle: time.Millisecond,
		ServiceStatus: func(ctx context.Context, namespace, name string) (readiness.ServiceStatus, error) {
			gotNamespace, gotName = namespace, name
			return readiness.ServiceStatus{
				Name:      name,
				Namespace: namespace,
				Type:      corev1.ServiceTypeLoadBalancer,
			}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	sc := Scenario{
		Name:           "healthy",
		ManifestDir:    t.TempDir(),
		Service:        "web",
		ExpectPending:  true,
		SettleDelay:    time.Millisecond,
		RolloutTimeout: time.Second,
	}
	if _, err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotNamespace != "default" || gotName != "web" {
		t.Errorf("status queried for %s/%s, want default/web", gotNamespace, gotName)
	}
}
