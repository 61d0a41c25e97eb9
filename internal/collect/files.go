package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/kubelab/internal/process"
)

// writeFlatFile archives a single command's output as a plain text file
// with a short comment header, the format downstream tooling greps
// through.
func (c *Collector) writeFlatFile(scenario, name string, res process.Result) error {
	path := filepath.Join(c.outputDir, fmt.Sprintf("%s-%s-kubectl_%s.txt", c.clusterID, scenario, name))

	var b strings.Builder
	fmt.Fprintf(&b, "# Command: %s\n", res.Command)
	fmt.Fprintf(&b, "# Timestamp: %s\n", res.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Return code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "# Cluster ID: %s\n", c.clusterID)
	fmt.Fprintf(&b, "# Scenario: %s\n", scenario)
	b.WriteString("\n--- STDOUT ---\n")
	b.WriteString(res.Stdout)
	if res.Stderr != "" {
		b.WriteString("\n--- STDERR ---\n")
		b.WriteString(res.Stderr)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing flat file %q: %w", path, err)
	}
	c.log.Debug("saved flat file", "path", path)
	return nil
}
