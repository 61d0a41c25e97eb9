// Package manifest applies declarative YAML manifests through the
// Kubernetes API.
//
// It walks manifest directories deterministically, decodes multi-document
// YAML into unstructured objects, and creates or updates them via a dynamic
// client. REST mappings come from live discovery and refresh automatically
// when a document references a kind the cached mapper does not know yet
// (e.g. a custom resource whose CRD was applied moments earlier).
// WaitEstablished blocks until applied CRDs are served.
package manifest
