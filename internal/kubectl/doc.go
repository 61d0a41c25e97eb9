// Package kubectl drives the kubectl CLI.
//
// Runner wraps the one-shot subcommands kubelab needs (apply, delete,
// rollout status) plus Snapshot, which captures arbitrary kubectl output
// verbatim for the assessment collector without interpreting it.
// PortForward supervises a long-running "kubectl port-forward" process with
// a kernel-allocated local port and a TCP readiness probe.
package kubectl
