package readiness

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PendingExternalIP is what kubectl prints in the EXTERNAL-IP column of a
// LoadBalancer service while no controller has assigned an ingress
// address. On a bare minikube cluster this is the steady state, not a
// transient.
const PendingExternalIP = "<pending>"

// noExternalIP is the EXTERNAL-IP rendering for service types that never
// receive one (ClusterIP, NodePort).
const noExternalIP = "<none>"

// ServiceStatus is a snapshot of the fields surfaced by
// `kubectl get service`.
type ServiceStatus struct {
	Name      string
	Namespace string
	Type      corev1.ServiceType
	ClusterIP string
	Ingress   []corev1.LoadBalancerIngress
	Ports     []corev1.ServicePort
}

// ExternalIP renders the EXTERNAL-IP column for the service. LoadBalancer
// services with no ingress yield PendingExternalIP; other types yield
// "<none>".
func (s ServiceStatus) ExternalIP() string {
	if s.Type != corev1.ServiceTypeLoadBalancer {
		return noExternalIP
	}
	if len(s.Ingress) == 0 {
		return PendingExternalIP
	}
	out := ""
	for i, ing := range s.Ingress {
		addr := ing.IP
		if addr == "" {
			addr = ing.Hostname
		}
		if i > 0 {
			out += ","
		}
		out += addr
	}
	return out
}

// Pending reports whether the service is a LoadBalancer still waiting for
// an external address.
func (s ServiceStatus) Pending() bool {
	return s.Type == corev1.ServiceTypeLoadBalancer && len(s.Ingress) == 0
}

// GetServiceStatus reads the current state of a service.
func GetServiceStatus(ctx context.Context, client kubernetes.Interface, namespace, name string) (ServiceStatus, error) {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if name == "" {
		return ServiceStatus{}, fmt.Errorf("service name must not be empty")
	}

	svc, err := client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return ServiceStatus{}, fmt.Errorf("getting service %s/%s: %w", namespace, name, err)
	}

	return ServiceStatus{
		Name:      svc.Name,
		Namespace: svc.Namespace,
		Type:      svc.Spec.Type,
		ClusterIP: svc.Spec.ClusterIP,
		Ingress:   svc.Status.LoadBalancer.Ingress,
		Ports:     svc.Spec.Ports,
	}, nil
}
