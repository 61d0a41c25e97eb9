// Package readiness polls the Kubernetes API for workload and service
// state. It renders service external IPs the way kubectl prints them,
// including the literal "<pending>" shown for LoadBalancer services that
// no controller has provisioned.
package readiness
