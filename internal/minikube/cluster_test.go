package minikube

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Binary:         "minikube",
		Profile:        "kubelab",
		StartTimeout:   5 * time.Minute,
		CommandTimeout: time.Minute,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*Config)
		wantMsg string
	}{
		"missing binary": {
			mutate:  func(c *Config) { c.Binary = "" },
			wantMsg: "binary must not be empty",
		},
		"missing profile": {
			mutate:  func(c *Config) { c.Profile = "" },
			wantMsg: "profile must not be empty",
		},
		"zero start timeout": {
			mutate:  func(c *Config) { c.StartTimeout = 0 },
			wantMsg: "start timeout must be positive",
		},
		"zero command timeout": {
			mutate:  func(c *Config) { c.CommandTimeout = 0 },
			wantMsg: "command timeout must be positive",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			_, err := New(cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not contain %q", err, tc.wantMsg)
			}
		})
	}
}

func TestNew_Valid(t *testing.T) {
	t.Parallel()

	c, err := New(validConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Profile() != "kubelab" {
		t.Errorf("Profile() = %q, want %q", c.Profile(), "kubelab")
	}
}

func TestStartArgs(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate     func(*Config)
		wantFlags  []string
		wantAbsent []string
	}{
		"defaults omit optional flags": {
			mutate:     func(_ *Config) {},
			wantFlags:  []string{"start", "--wait=all"},
			wantAbsent: []string{"--cpus", "--memory", "--disk-size", "--driver", "--kubernetes-version"},
		},
		"full resource flags": {
			mutate: func(c *Config) {
				c.Driver = "docker"
				c.CPUs = 4
				c.MemoryMB = 4096
				c.DiskSize = "20g"
			},
			wantFlags: []string{
				"start", "--driver=docker", "--cpus=4", "--memory=4096", "--disk-size=20g",
			},
		},
		"pinned kubernetes version": {
			mutate: func(c *Config) {
				c.KubernetesVersion = "v1.34.0"
			},
			wantFlags: []string{"--kubernetes-version=v1.34.0"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			c, err := New(cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			args := c.startArgs()
			for _, want := range tc.wantFlags {
				if !slices.Contains(args, want) {
					t.Errorf("args %v missing %q", args, want)
				}
			}
			for _, absent := range tc.wantAbsent {
				for _, a := range args {
					if strings.HasPrefix(a, absent) {
						t.Errorf("args %v should not contain %q", args, absent)
					}
				}
			}
		})
	}
}

func TestStartArgs_WaitTimeoutTracksStartTimeout(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.StartTimeout = 7 * time.Minute
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !slices.Contains(c.startArgs(), "--wait-timeout=7m0s") {
		t.Errorf("args %v missing --wait-timeout=7m0s", c.startArgs())
	}
}

// recordingBinary writes a shell stub that appends each invocation's
// arguments to argvPath and exits 0.
func recordingBinary(t *testing.T, argvPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minikube")
	script := "#!/bin/sh\necho \"$@\" >> " + argvPath + "\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing stub binary: %v", err)
	}
	return path
}

func recordedInvocations(t *testing.T, argvPath string) []string {
	t.Helper()
	data, err := os.ReadFile(argvPath)
	if err != nil {
		t.Fatalf("reading recorded invocations: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestStart_FreshTearsDownExistingProfile(t *testing.T) {
	t.Parallel()

	argvPath := filepath.Join(t.TempDir(), "argv.log")
	cfg := validConfig()
	cfg.Binary = recordingBinary(t, argvPath)
	cfg.Fresh = true
	cfg.Addons = []string{"metrics-server"}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := recordedInvocations(t, argvPath)
	want := []string{
		"--profile kubelab stop",
		"--profile kubelab delete",
		"--profile kubelab start",
		"--profile kubelab addons enable metrics-server",
	}
	if len(got) != len(want) {
		t.Fatalf("recorded %d invocations %v, want %d", len(got), got, len(want))
	}
	for i, prefix := range want {
		if !strings.HasPrefix(got[i], prefix) {
			t.Errorf("invocation %d = %q, want prefix %q", i, got[i], prefix)
		}
	}
}

func TestStart_KeepSkipsTeardown(t *testing.T) {
	t.Parallel()

	argvPath := filepath.Join(t.TempDir(), "argv.log")
	cfg := validConfig()
	cfg.Binary = recordingBinary(t, argvPath)

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, inv := range recordedInvocations(t, argvPath) {
		if strings.Contains(inv, " stop") || strings.Contains(inv, " delete") {
			t.Errorf("unexpected teardown invocation %q", inv)
		}
	}
}

func TestAvailable_MissingBinary(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Binary = "definitely-not-minikube-kubelab"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Available(); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestNewTunnel_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewTunnel(TunnelConfig{Binary: "minikube", Profile: "kubelab"})
	if err == nil || !strings.Contains(err.Error(), "data dir must not be empty") {
		t.Fatalf("got %v, want data dir validation error", err)
	}

	tun, err := NewTunnel(TunnelConfig{Binary: "minikube", Profile: "kubelab", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewTunnel: %v", err)
	}
	if tun.IsStarted() {
		t.Error("new tunnel should not report started")
	}
}
