package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/giantswarm/kubelab/internal/logging"
	"github.com/giantswarm/kubelab/internal/sentinel"
)

// ErrExternalIPPending is returned by WaitServiceExternalIP when the
// timeout elapses with the service still showing <pending>. For a
// LoadBalancer on minikube without a tunnel this is the expected outcome,
// so callers typically treat it as a finding rather than a failure.
const ErrExternalIPPending = sentinel.Error("service external IP still pending")

const defaultPollInterval = 2 * time.Second

// WaitNodeReady blocks until at least one node reports the Ready
// condition.
func WaitNodeReady(ctx context.Context, client kubernetes.Interface, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Logger()
	}

	err := wait.PollUntilContextTimeout(ctx, defaultPollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			logger.Debug("listing nodes failed, retrying", "error", err)
			return false, nil
		}
		for i := range nodes.Items {
			if nodeReady(&nodes.Items[i]) {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for a ready node: %w", err)
	}
	return nil
}

// WaitDeploymentAvailable blocks until the deployment has all desired
// replicas available.
func WaitDeploymentAvailable(ctx context.Context, client kubernetes.Interface, namespace, name string, timeout time.Duration, logger *slog.Logger) error {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if name == "" {
		return fmt.Errorf("deployment name must not be empty")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	err := wait.PollUntilContextTimeout(ctx, defaultPollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		dep, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			logger.Debug("getting deployment failed, retrying",
				"deployment", name, "namespace", namespace, "error", err)
			return false, nil
		}
		return deploymentAvailable(dep), nil
	})
	if err != nil {
		return fmt.Errorf("waiting for deployment %s/%s to become available: %w", namespace, name, err)
	}
	return nil
}

// WaitServiceExternalIP polls a service until it has an external address
// or the timeout elapses. When the timeout hits with the service still a
// LoadBalancer without ingress, the error wraps ErrExternalIPPending and
// carries the last observed status.
func WaitServiceExternalIP(ctx context.Context, client kubernetes.Interface, namespace, name string, timeout time.Duration, logger *slog.Logger) (ServiceStatus, error) {
	if logger == nil {
		logger = logging.Logger()
	}

	var last ServiceStatus
	err := wait.PollUntilContextTimeout(ctx, defaultPollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		status, err := GetServiceStatus(ctx, client, namespace, name)
		if err != nil {
			logger.Debug("getting service status failed, retrying",
				"service", name, "namespace", namespace, "error", err)
			return false, nil
		}
		last = status
		if status.Type != corev1.ServiceTypeLoadBalancer {
			// Non-LoadBalancer services never get one, stop early.
			return true, nil
		}
		return !status.Pending(), nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && last.Pending() {
			return last, fmt.Errorf("service %s/%s after %s: %w", last.Namespace, last.Name, timeout, ErrExternalIPPending)
		}
		return last, fmt.Errorf("waiting for external IP of %s/%s: %w", namespace, name, err)
	}
	return last, nil
}

func nodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func deploymentAvailable(dep *appsv1.Deployment) bool {
	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	return dep.Status.AvailableReplicas >= desired &&
		dep.Status.ObservedGeneration >= dep.Generation
}
