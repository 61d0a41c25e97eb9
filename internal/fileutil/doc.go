// Package fileutil provides small file and directory helpers.
//
// EnsureDir creates directories recursively; CopyFile copies files with
// optional fsync and atomic temp-file-then-rename writes. kubelab uses these
// for preparing run output directories and archiving applied manifests next
// to collected assessment data.
package fileutil
