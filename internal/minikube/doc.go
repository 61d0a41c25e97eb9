// Package minikube drives the minikube CLI.
//
// Cluster wraps the one-shot subcommands used to provision and tear down a
// local cluster (start, stop, delete, status, ip, addons enable). Tunnel
// supervises the long-running "minikube tunnel" process that acts as a
// load-balancer provisioner for LoadBalancer services, which otherwise stay
// pending on a local cluster.
package minikube
