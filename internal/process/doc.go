// Package process manages external tool invocation for kubelab.
//
// It provides BaseProcess for supervised long-running children (minikube
// tunnel, kubectl port-forward) with log-file capture and a
// SIGTERM-then-SIGKILL stop sequence, Run for one-shot commands executed to
// completion under a timeout with captured output, and WaitReady for
// polling-based readiness checks that abort early when the watched process
// exits.
package process
