// Package scenario defines reproducible cluster states and drives one
// state through its full lifecycle: apply manifests, let the cluster
// settle, collect assessment output, and clean up.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/kubelab/internal/sentinel"
)

const (
	// ErrEmptyName is returned for a scenario without a name.
	ErrEmptyName = sentinel.Error("scenario name must not be empty")
	// ErrEmptyManifestDir is returned for a scenario without a manifest
	// directory.
	ErrEmptyManifestDir = sentinel.Error("scenario manifest directory must not be empty")
	// ErrNoScenarios is returned when a scenario file defines nothing.
	ErrNoScenarios = sentinel.Error("scenario file defines no scenarios")
)

const (
	defaultSettleDelay    = 30 * time.Second
	defaultRolloutTimeout = 2 * time.Minute
)

// Scenario is one reproducible cluster state. The manifests under
// ManifestDir are applied, the cluster settles for SettleDelay, and then
// assessments run with the scenario's name in every archived filename.
type Scenario struct {
	Name        string `yaml:"name"`
	ManifestDir string `yaml:"manifestDir"`

	// SettleDelay is how long to wait after the rollout before
	// collecting, so pod restarts and events have time to surface.
	SettleDelay time.Duration `yaml:"settleDelay"`

	// RolloutTimeout bounds the post-apply rollout wait. For scenarios
	// that deploy broken workloads the wait is expected to expire.
	RolloutTimeout time.Duration `yaml:"rolloutTimeout"`

	// Service names the scenario's LoadBalancer service. When set, the
	// runner reads its status before collecting. Empty skips the check.
	Service string `yaml:"service"`

	// ExpectPending marks scenarios whose LoadBalancer service is
	// supposed to stay at <pending>. The runner records the observation
	// instead of treating it as a failure.
	ExpectPending bool `yaml:"expectPending"`
}

func (s Scenario) validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if s.ManifestDir == "" {
		return fmt.Errorf("scenario %q: %w", s.Name, ErrEmptyManifestDir)
	}
	return nil
}

// withDefaults fills in zero durations.
func (s Scenario) withDefaults() Scenario {
	if s.SettleDelay <= 0 {
		s.SettleDelay = defaultSettleDelay
	}
	if s.RolloutTimeout <= 0 {
		s.RolloutTimeout = defaultRolloutTimeout
	}
	return s
}

// Builtins returns the two stock scenarios rooted under manifestRoot:
// "healthy" deploys a working workload, "sick" a broken one. Both carry a
// LoadBalancer service that stays <pending> on a bare minikube cluster.
func Builtins(manifestRoot string) []Scenario {
	sick := Scenario{
		Name:          "sick",
		ManifestDir:   filepath.Join(manifestRoot, "sick"),
		Service:       "web",
		ExpectPending: true,
	}
	healthy := Scenario{
		Name:          "healthy",
		ManifestDir:   filepath.Join(manifestRoot, "healthy"),
		Service:       "web",
		ExpectPending: true,
	}
	return []Scenario{sick.withDefaults(), healthy.withDefaults()}
}

// scenarioFile is the on-disk YAML shape.
type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads scenarios from a YAML file, applies defaults, and validates
// each entry. Relative manifest directories are resolved against the
// file's own directory.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %q: %w", path, err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario file %q: %w", path, err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoScenarios, path)
	}

	base := filepath.Dir(path)
	out := make([]Scenario, 0, len(file.Scenarios))
	for _, s := range file.Scenarios {
		s = s.withDefaults()
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("scenario file %q: %w", path, err)
		}
		if !filepath.IsAbs(s.ManifestDir) {
			s.ManifestDir = filepath.Join(base, s.ManifestDir)
		}
		out = append(out, s)
	}
	return out, nil
}
