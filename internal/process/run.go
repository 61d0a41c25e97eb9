package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Result records the outcome of a one-shot command invocation. It mirrors
// what the assessment collector archives: the full command line, exit code,
// captured output, and timing. A Result is always produced, even for
// commands that failed to start, so partial tool failures can be recorded
// instead of aborting a collection run.
type Result struct {
	Command  string        `json:"command"`    // full command line, space-joined
	ExitCode int           `json:"returncode"` // -1 when the command did not run or timed out
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Started  time.Time     `json:"timestamp"`
	Duration time.Duration `json:"duration_ns"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

// Err returns nil when the command ran and exited zero, and an error naming
// the command and carrying a stderr excerpt otherwise.
func (r Result) Err() error {
	if r.ExitCode == 0 {
		return nil
	}
	if r.TimedOut {
		return fmt.Errorf("%s: timed out after %s", r.Command, r.Duration.Round(time.Millisecond))
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(r.Stdout)
	}
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		return fmt.Errorf("%s: exit code %d", r.Command, r.ExitCode)
	}
	return fmt.Errorf("%s: exit code %d: %s", r.Command, r.ExitCode, msg)
}

// Run executes a command to completion under the given timeout and captures
// its output. Run never returns a Go error for tool failures; the Result
// carries the exit code and stderr, and callers that need a hard failure
// call Result.Err. A zero timeout means the command is bounded only by ctx.
func Run(ctx context.Context, logger *slog.Logger, timeout time.Duration, name string, args ...string) Result {
	if logger == nil {
		logger = slog.Default()
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := Result{
		Command: strings.Join(append([]string{name}, args...), " "),
		Started: time.Now(),
	}
	logger.Info("running command", "command", res.Command)

	cmd := exec.CommandContext(runCtx, name, args...)
	configureSysProcAttr(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res.Duration = time.Since(res.Started)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.TimedOut = true
		if res.Stderr == "" {
			res.Stderr = "command timed out"
		}
		logger.Error("command timed out", "command", res.Command, "timeout", timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Did not start at all (e.g. binary missing).
			res.ExitCode = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
		logger.Debug("command failed", "command", res.Command, "exit_code", res.ExitCode)
	}

	return res
}
