package collect

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/kubelab/internal/kubectl"
)

func echoRunner(t *testing.T) *kubectl.Runner {
	t.Helper()
	r, err := kubectl.New(kubectl.Config{
		Binary:         "echo",
		Context:        "kubelab",
		CommandTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("kubectl.New: %v", err)
	}
	return r
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	runner := echoRunner(t)

	tests := map[string]struct {
		cfg     Config
		wantErr error
	}{
		"missing cluster ID": {
			cfg:     Config{OutputDir: "out", Kubectl: runner},
			wantErr: ErrEmptyClusterID,
		},
		"missing output dir": {
			cfg:     Config{ClusterID: "c1", Kubectl: runner},
			wantErr: ErrEmptyOutputDir,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tc.cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewNilKubectl(t *testing.T) {
	t.Parallel()

	_, err := New(Config{ClusterID: "c1", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for nil kubectl runner")
	}
}

func TestRunEmptyScenario(t *testing.T) {
	t.Parallel()

	c, err := New(Config{ClusterID: "c1", OutputDir: t.TempDir(), Kubectl: echoRunner(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Run(context.Background(), ""); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("got %v, want ErrEmptyScenario", err)
	}
}

func TestRunArchivesEverything(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(Config{ClusterID: "lab-1", OutputDir: dir, Kubectl: echoRunner(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := c.Run(context.Background(), "healthy")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	battery := Assessments()
	if len(report.Assessments) != len(battery) {
		t.Fatalf("got %d assessments, want %d", len(report.Assessments), len(battery))
	}
	for _, a := range battery {
		res, ok := report.Assessments[a.Name]
		if !ok {
			t.Fatalf("missing assessment %q in report", a.Name)
		}
		if res.Result.ExitCode != 0 {
			t.Errorf("assessment %q exit code = %d, want 0", a.Name, res.Result.ExitCode)
		}

		flat := filepath.Join(dir, "lab-1-healthy-kubectl_"+a.Name+".txt")
		data, err := os.ReadFile(flat)
		if err != nil {
			t.Fatalf("reading flat file: %v", err)
		}
		text := string(data)
		for _, want := range []string{
			"# Command: echo --context kubelab",
			"# Cluster ID: lab-1",
			"# Scenario: healthy",
			"--- STDOUT ---",
		} {
			if !strings.Contains(text, want) {
				t.Errorf("flat file for %q missing %q", a.Name, want)
			}
		}
	}

	wantReport := filepath.Join(dir, "lab-1-healthy-comprehensive.json")
	if report.Path != wantReport {
		t.Errorf("report path = %q, want %q", report.Path, wantReport)
	}
	data, err := os.ReadFile(wantReport)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if decoded["cluster_id"] != "lab-1" {
		t.Errorf("cluster_id = %v, want lab-1", decoded["cluster_id"])
	}
	if decoded["scenario_type"] != "healthy" {
		t.Errorf("scenario_type = %v, want healthy", decoded["scenario_type"])
	}

	index, err := OpenIndex(filepath.Join(dir, IndexFileName))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer index.Close()
	runs, err := index.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d indexed runs, want 1", len(runs))
	}
	if runs[0].Scenario != "healthy" || runs[0].ClusterID != "lab-1" {
		t.Errorf("indexed run = %+v", runs[0])
	}
}

func TestRunFailingCommandIsArchived(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r, err := kubectl.New(kubectl.Config{
		Binary:         "false",
		Context:        "kubelab",
		CommandTimeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("kubectl.New: %v", err)
	}
	c, err := New(Config{ClusterID: "lab-1", OutputDir: dir, Kubectl: r})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := c.Run(context.Background(), "sick")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for name, res := range report.Assessments {
		if res.Result.ExitCode == 0 {
			t.Errorf("assessment %q exit code = 0, want nonzero", name)
		}
	}
}

func TestAssessmentsStable(t *testing.T) {
	t.Parallel()

	battery := Assessments()
	if len(battery) != 10 {
		t.Fatalf("got %d assessments, want 10", len(battery))
	}
	seen := make(map[string]bool, len(battery))
	for _, a := range battery {
		if a.Name == "" || a.Description == "" || len(a.Args) == 0 {
			t.Errorf("incomplete assessment: %+v", a)
		}
		if seen[a.Name] {
			t.Errorf("duplicate assessment name %q", a.Name)
		}
		seen[a.Name] = true
	}
	if battery[0].Name != "cluster-info" {
		t.Errorf("first assessment = %q, want cluster-info", battery[0].Name)
	}
}
