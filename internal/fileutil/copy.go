package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/giantswarm/kubelab/internal/sentinel"
)

// ErrEmptySrc is returned when a source path is empty.
const ErrEmptySrc = sentinel.Error("source path must not be empty")

// ErrEmptyDst is returned when a destination path is empty.
const ErrEmptyDst = sentinel.Error("destination path must not be empty")

// CopyOptions configures CopyFile behavior.
type CopyOptions struct {
	Mode   os.FileMode // Permissions for the destination; zero means 0644
	Sync   bool        // Call Sync() before closing the destination
	Atomic bool        // Write to a temp file in dst's directory, then rename
}

// CopyFile copies src to dst, creating parent directories as needed.
//
// The destination is created with the target permissions directly via
// os.OpenFile, so there is no window where the file is more permissive than
// intended. With Atomic set, data is written to a temp file in the same
// directory and renamed onto dst; on POSIX systems the rename is atomic, so
// concurrent readers never observe a partially written file. Atomic implies
// an fsync before the rename.
func CopyFile(src, dst string, opts CopyOptions) (retErr error) {
	if src == "" {
		return ErrEmptySrc
	}
	if dst == "" {
		return ErrEmptyDst
	}
	if err := EnsureDirForFile(dst); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if closeErr := srcFile.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("close source: %w", closeErr)
		}
	}()

	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}

	dstFile, writePath, err := openDst(dst, mode, opts.Atomic)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(writePath)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("copy: %w", err)
	}

	if opts.Sync || opts.Atomic {
		if err := dstFile.Sync(); err != nil {
			_ = dstFile.Close()
			return fmt.Errorf("sync: %w", err)
		}
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	if writePath != dst {
		if err := os.Rename(writePath, dst); err != nil {
			return fmt.Errorf("rename temp file to destination: %w", err)
		}
	}
	return nil
}

// openDst opens the destination file for writing. With atomic set, it
// creates a temp file in dst's directory so the final rename stays on the
// same filesystem.
func openDst(dst string, mode os.FileMode, atomic bool) (*os.File, string, error) {
	if atomic {
		tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-copy-*")
		if err != nil {
			return nil, "", fmt.Errorf("create temp file: %w", err)
		}
		if err := tmp.Chmod(mode); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return nil, "", fmt.Errorf("chmod temp file: %w", err)
		}
		return tmp, tmp.Name(), nil
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return nil, "", fmt.Errorf("create destination: %w", err)
	}
	return f, dst, nil
}
