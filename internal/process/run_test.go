package process

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	t.Parallel()

	res := Run(context.Background(), nil, 5*time.Second, "echo", "hello")
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", res.ExitCode, res.Stderr)
	}
	if got := strings.TrimSpace(res.Stdout); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
	if res.Command != "echo hello" {
		t.Errorf("command = %q, want %q", res.Command, "echo hello")
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
	if res.Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()

	res := Run(context.Background(), nil, 5*time.Second, "false")
	if res.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if res.Err() == nil {
		t.Fatal("Err() should be non-nil for failed command")
	}
}

func TestRun_MissingBinary(t *testing.T) {
	t.Parallel()

	res := Run(context.Background(), nil, 5*time.Second, "definitely-not-a-real-binary-kubelab")
	if res.ExitCode != -1 {
		t.Fatalf("exit code = %d, want -1", res.ExitCode)
	}
	if res.Stderr == "" {
		t.Error("stderr should carry the start failure")
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	res := Run(context.Background(), nil, 50*time.Millisecond, "sleep", "30")
	if !res.TimedOut {
		t.Fatal("expected TimedOut to be set")
	}
	if res.ExitCode != -1 {
		t.Fatalf("exit code = %d, want -1", res.ExitCode)
	}
	if err := res.Err(); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Err() = %v, want timeout error", err)
	}
}

func TestResult_ErrTruncatesLongStderr(t *testing.T) {
	t.Parallel()

	res := Result{
		Command:  "kubectl get pods",
		ExitCode: 1,
		Stderr:   strings.Repeat("x", 1000),
	}
	err := res.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 400 {
		t.Errorf("error message too long: %d bytes", len(err.Error()))
	}
}
