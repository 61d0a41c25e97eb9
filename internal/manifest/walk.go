package manifest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/giantswarm/kubelab/internal/sentinel"
)

const (
	// ErrEmptyDir is returned when a manifest directory path is empty.
	ErrEmptyDir = sentinel.Error("manifest directory must not be empty")
	// ErrNoManifests is returned when a manifest directory contains no
	// YAML files.
	ErrNoManifests = sentinel.Error("no manifest files found")
)

// WalkYAMLFiles returns all .yaml and .yml files under dir, sorted by
// path. The sort makes the apply order deterministic so manifests can rely
// on lexicographic prefixes (00-namespace.yaml, 10-deployment.yaml) for
// ordering.
func WalkYAMLFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, ErrEmptyDir
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking manifest dir %q: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoManifests, dir)
	}

	sort.Strings(paths)
	return paths, nil
}
