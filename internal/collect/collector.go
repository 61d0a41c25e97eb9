package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/kubelab/internal/fileutil"
	"github.com/giantswarm/kubelab/internal/kubectl"
	"github.com/giantswarm/kubelab/internal/logging"
	"github.com/giantswarm/kubelab/internal/process"
	"github.com/giantswarm/kubelab/internal/sentinel"
)

const (
	// ErrEmptyClusterID is returned when a collector is configured
	// without a cluster identifier.
	ErrEmptyClusterID = sentinel.Error("cluster ID must not be empty")
	// ErrEmptyOutputDir is returned when a collector is configured
	// without an output directory.
	ErrEmptyOutputDir = sentinel.Error("output directory must not be empty")
	// ErrEmptyScenario is returned when Run is called with an empty
	// scenario name.
	ErrEmptyScenario = sentinel.Error("scenario name must not be empty")
)

const defaultConcurrency = 4

// Config describes a Collector.
type Config struct {
	// ClusterID identifies the cluster in filenames and reports.
	ClusterID string
	// OutputDir receives the flat files, the JSON report, and the run
	// index database.
	OutputDir string
	// Kubectl runs the assessment commands.
	Kubectl *kubectl.Runner
	// Concurrency bounds how many assessments run at once. Zero means
	// a small default.
	Concurrency int
	// Logger defaults to the package logger when nil.
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.ClusterID == "" {
		return ErrEmptyClusterID
	}
	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}
	if c.Kubectl == nil {
		return fmt.Errorf("kubectl runner must not be nil")
	}
	return nil
}

// AssessmentResult pairs an assessment's description with the raw command
// outcome, matching the shape of the archived JSON reports.
type AssessmentResult struct {
	Description string         `json:"description"`
	Result      process.Result `json:"result"`
}

// Report is the comprehensive record of one collection run.
type Report struct {
	ClusterID   string                      `json:"cluster_id"`
	Scenario    string                      `json:"scenario_type"`
	Timestamp   time.Time                   `json:"timestamp"`
	Assessments map[string]AssessmentResult `json:"assessments"`

	// Path is where the report was written. Not serialized; the report
	// itself must not depend on its location.
	Path string `json:"-"`
}

// Collector runs the assessment battery and archives the results.
type Collector struct {
	clusterID   string
	outputDir   string
	kubectl     *kubectl.Runner
	concurrency int
	log         *slog.Logger
}

// New creates a Collector and ensures its output directory exists.
func New(cfg Config) (*Collector, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid collector config: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Logger()
	}
	if err := fileutil.EnsureDir(cfg.OutputDir); err != nil {
		return nil, err
	}

	return &Collector{
		clusterID:   cfg.ClusterID,
		outputDir:   cfg.OutputDir,
		kubectl:     cfg.Kubectl,
		concurrency: cfg.Concurrency,
		log:         cfg.Logger.With("cluster_id", cfg.ClusterID),
	}, nil
}

// OutputDir returns the directory the collector archives into.
func (c *Collector) OutputDir() string {
	return c.outputDir
}

// Run executes every assessment for the named scenario, writes one flat
// file per command plus a comprehensive JSON report, and records the run
// in the index database. Failing commands are archived, not fatal; Run
// only errors when archiving itself fails.
func (c *Collector) Run(ctx context.Context, scenario string) (*Report, error) {
	if scenario == "" {
		return nil, ErrEmptyScenario
	}

	lock, err := acquireLock(ctx, c.outputDir, c.log)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	battery := Assessments()
	c.log.Info("running assessments", "scenario", scenario, "count", len(battery))

	report := &Report{
		ClusterID:   c.clusterID,
		Scenario:    scenario,
		Timestamp:   time.Now(),
		Assessments: make(map[string]AssessmentResult, len(battery)),
	}

	results := make([]process.Result, len(battery))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, a := range battery {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.log.Info("running assessment", "name", a.Name, "scenario", scenario)
			results[i] = c.kubectl.Snapshot(gctx, a.Args...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running assessments: %w", err)
	}

	for i, a := range battery {
		report.Assessments[a.Name] = AssessmentResult{
			Description: a.Description,
			Result:      results[i],
		}
		if err := c.writeFlatFile(scenario, a.Name, results[i]); err != nil {
			return nil, err
		}
	}

	if err := c.writeReport(report); err != nil {
		return nil, err
	}

	index, err := OpenIndex(filepath.Join(c.outputDir, IndexFileName))
	if err != nil {
		return nil, err
	}
	defer index.Close()
	if err := index.Record(ctx, report); err != nil {
		return nil, err
	}

	c.log.Info("assessment run archived", "scenario", scenario, "report", report.Path)
	return report, nil
}

func (c *Collector) writeReport(report *Report) error {
	path := filepath.Join(c.outputDir, fmt.Sprintf("%s-%s-comprehensive.json", c.clusterID, report.Scenario))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %q: %w", path, err)
	}
	report.Path = path
	return nil
}
