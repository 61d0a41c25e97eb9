// Package kubelab provisions a local minikube cluster and reproduces a
// well-known failure mode on it: a Kubernetes Service of type LoadBalancer
// whose EXTERNAL-IP stays <pending> because no cloud controller exists to
// provision a load balancer.
//
// A Lab owns the cluster lifecycle, deploys scenario workloads, reads
// service state through the Kubernetes API, and archives kubectl
// assessment output for later analysis. It also drives the two live
// workarounds for the pending state: "minikube tunnel", which assigns
// external IPs while it runs, and "kubectl port-forward", which exposes a
// service on a local port without touching its external IP.
//
//	lab := kubelab.New(kubelab.WithProfile("demo"))
//	if err := lab.Up(ctx); err != nil {
//		...
//	}
//	defer lab.Close()
package kubelab
