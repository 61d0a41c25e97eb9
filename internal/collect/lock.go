package collect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName      = ".kubelab.lock"
	lockRetryInterval = 50 * time.Millisecond
)

// outputLock serializes collection runs that share an output directory.
// Without it two runs against the same directory would interleave flat
// files and clobber each other's reports.
type outputLock struct {
	fl  *flock.Flock
	log *slog.Logger
}

func acquireLock(ctx context.Context, dir string, logger *slog.Logger) (*outputLock, error) {
	path := filepath.Join(dir, lockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring output lock %q: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("output lock %q not acquired", path)
	}

	logger.Debug("acquired output lock", "path", path)
	return &outputLock{fl: fl, log: logger}, nil
}

func (l *outputLock) release() {
	if err := l.fl.Unlock(); err != nil {
		l.log.Warn("releasing output lock failed", "path", l.fl.Path(), "error", err)
	}
}
