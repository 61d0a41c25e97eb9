package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/giantswarm/kubelab/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called on a process that is
// already running. Callers must Stop the process before starting it again.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyDataDir is returned when SetupAndStart is called with an empty data directory.
const ErrEmptyDataDir = sentinel.Error("data directory must not be empty")

// LogFiles manages the stdout/stderr file handles of a supervised process.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dataDir    string
	stdoutName string // e.g. "tunnel-stdout.log"
	stderrName string // e.g. "tunnel-stderr.log"
}

// NewLogFiles creates log files for a process in dataDir. The processName is
// used to derive the file names (e.g. "tunnel" -> "tunnel-stdout.log").
func NewLogFiles(dataDir, processName string) (LogFiles, error) {
	l := LogFiles{
		dataDir:    dataDir,
		stdoutName: processName + "-stdout.log",
		stderrName: processName + "-stderr.log",
	}
	stdoutFile, err := os.Create(l.StdoutPath())
	if err != nil {
		return LogFiles{}, fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return LogFiles{}, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return l, nil
}

// StdoutPath returns the absolute path of the stdout log file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dataDir, l.stdoutName)
}

// StderrPath returns the absolute path of the stderr log file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dataDir, l.stderrName)
}

// Close closes both handles and nils them to prevent double-close.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// BaseProcess provides common lifecycle management for supervised children.
// Embed it in package-specific process types to reuse Stop and Close.
//
// BaseProcess is not safe for concurrent use. Callers must serialize access
// to all methods; in practice each BaseProcess is owned by one tunnel or
// port-forward whose owner serializes lifecycle calls.
type BaseProcess struct {
	cmd         *exec.Cmd
	waitDone    <-chan error    // receives the cmd.Wait result; consumed by Stop
	exited      <-chan struct{} // closed on process exit; readable by any goroutine
	logFiles    LogFiles
	name        string
	log         *slog.Logger
	stopTimeout time.Duration // used by Close's auto-stop; zero means DefaultStopTimeout
}

// NewBaseProcess creates a BaseProcess. If logger is nil, slog.Default() is
// used. If stopTimeout is zero, Close falls back to DefaultStopTimeout when
// auto-stopping. Panics if name is empty, since the name appears in every
// error and log line.
func NewBaseProcess(name string, logger *slog.Logger, stopTimeout time.Duration) BaseProcess {
	if name == "" {
		panic("kubelab: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, stopTimeout: stopTimeout}
}

// SetupAndStart creates log files, wires stdout/stderr, and starts the
// command. The cmd must already have Path and Args set; Dir, Stdout, and
// Stderr are set here. Returns ErrAlreadyStarted if the process is running.
//
// Exactly one goroutine calling cmd.Wait is started here. cmd.Wait must be
// called once per started process; a second call is undefined behavior. The
// buffered done channel is consumed by Stop, and the exited channel is a
// broadcast signal for readiness polls to detect early death.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, dataDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if dataDir == "" {
		return ErrEmptyDataDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	logFiles, err := NewLogFiles(dataDir, b.name)
	if err != nil {
		return fmt.Errorf("create %s logs: %w", b.name, err)
	}

	cmd.Dir = dataDir
	cmd.Stdout = logFiles.stdoutFile
	cmd.Stderr = logFiles.stderrFile
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return fmt.Errorf("start %s process: %w", b.name, err)
	}
	b.cmd = cmd
	b.logFiles = logFiles

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	return nil
}

// Stop terminates the process with the given timeout. After Stop returns,
// IsStarted reports false regardless of outcome, because the process is no
// longer in a known-running state. Safe to call when the process was never
// started or already stopped; returns nil immediately in those cases.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.cmd = nil
		b.waitDone = nil
		b.exited = nil
		return nil
	}
	pid := b.cmd.Process.Pid
	err := stopWithDone(b.cmd, b.waitDone, timeout, b.name)
	if err != nil {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
	}
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	return err
}

// Close closes log file handles. If the process is still running, Close logs
// a warning and stops it automatically to prevent leaks; callers should
// always call Stop first, the auto-stop is a safety net.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		timeout := b.stopTimeout
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		if err := b.Stop(timeout); err != nil {
			b.log.Warn("auto-stop during Close failed",
				"process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

// Logger returns the logger used by this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// Exited returns a channel closed when the process exits. Safe to select on
// from any number of goroutines. Nil if the process is not running.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// IsStarted reports whether the process has been started and not yet stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// LogPaths returns the stdout and stderr log file paths.
func (b *BaseProcess) LogPaths() (stdout, stderr string) {
	return b.logFiles.StdoutPath(), b.logFiles.StderrPath()
}
