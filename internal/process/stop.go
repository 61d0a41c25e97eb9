package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// DefaultStopTimeout is the fallback timeout for stopping a process when the
// owner did not configure one.
const DefaultStopTimeout = 10 * time.Second

// termGracePeriod is the maximum time to wait for a process to exit after
// SIGTERM before escalating to SIGKILL. The actual grace period is capped
// at the overall timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout is the hard upper bound for waiting on the done channel
// after SIGKILL has been sent (or after the process already exited). SIGKILL
// cannot be caught, so the process should exit almost immediately; this
// timeout only guards against cmd.Wait never returning due to stuck I/O.
const killDrainTimeout = 10 * time.Second

// drainDone reads from the done channel with timeout as a hard upper bound.
// Returns true and the cmd.Wait error if the channel delivered in time, or
// false and a nil error if the timeout elapsed.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone implements the SIGTERM-then-SIGKILL shutdown sequence using a
// pre-existing done channel whose goroutine already calls cmd.Wait, avoiding
// a second Wait call (undefined behavior). The done channel must receive the
// result of exactly one cmd.Wait call.
//
//  1. Send SIGTERM for graceful shutdown.
//  2. Schedule SIGKILL via time.AfterFunc after a grace period, canceled if
//     the process exits first.
//  3. Wait for process exit or the total timeout.
//
// stopWithDone does not clear cmd or the done channel; the caller clears
// those references after it returns. Worst-case blocking duration is
// timeout + killDrainTimeout, when the main timeout expires and the
// post-SIGKILL drain also blocks for its full duration.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Process already exited; drain the wait goroutine with a hard
		// upper bound to avoid blocking indefinitely.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	// grace is clamped to timeout so SIGKILL always fires before the total
	// timeout expires, giving drainDone a window to collect the exit status.
	grace := min(termGracePeriod, timeout)
	killTimer := time.AfterFunc(grace, func() {
		// Kill after the process already exited returns "os: process already
		// finished", which is harmless and intentionally discarded.
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case err := <-done:
		return expectSignalExit(err, name)
	case <-totalTimer.C:
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
		}
		if err := expectSignalExit(waitErr, name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", name, err)
		}
		return nil
	}
}

// expectSignalExit interprets an error from cmd.Wait after a termination
// signal was sent. Exits caused by SIGTERM or SIGKILL count as successful stops.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
