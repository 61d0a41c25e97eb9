package kubelab

import (
	"log/slog"

	"github.com/giantswarm/kubelab/internal/logging"
)

// SetLogger replaces the package-wide default logger used by Labs created
// without WithLogger. Passing nil restores the built-in default. Safe for
// concurrent use.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}
