package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWalkYAMLFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWrite := func(rel string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("kind: ConfigMap\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	mustWrite("10-deployment.yaml")
	mustWrite("00-namespace.yaml")
	mustWrite("nested/20-service.yml")
	mustWrite("notes.txt")
	mustWrite("README.md")

	paths, err := WalkYAMLFiles(dir)
	if err != nil {
		t.Fatalf("WalkYAMLFiles: %v", err)
	}

	want := []string{
		filepath.Join(dir, "00-namespace.yaml"),
		filepath.Join(dir, "10-deployment.yaml"),
		filepath.Join(dir, "nested", "20-service.yml"),
	}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(paths), len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestWalkYAMLFilesEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := WalkYAMLFiles("")
	if !errors.Is(err, ErrEmptyDir) {
		t.Errorf("got %v, want ErrEmptyDir", err)
	}
}

func TestWalkYAMLFilesNoManifests(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := WalkYAMLFiles(dir)
	if !errors.Is(err, ErrNoManifests) {
		t.Errorf("got %v, want ErrNoManifests", err)
	}
}

func TestWalkYAMLFilesMissingDir(t *testing.T) {
	t.Parallel()

	_, err := WalkYAMLFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
