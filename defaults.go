package kubelab

import "time"

// Defaults for a Lab. Every value can be overridden with the matching
// option.
const (
	// DefaultProfile is the minikube profile (and kubeconfig context)
	// a Lab uses.
	DefaultProfile = "kubelab"

	// DefaultMinikubeBinary is resolved via PATH.
	DefaultMinikubeBinary = "minikube"

	// DefaultKubectlBinary is resolved via PATH.
	DefaultKubectlBinary = "kubectl"

	// DefaultCPUs is the cluster CPU allotment.
	DefaultCPUs = 4

	// DefaultMemoryMB is the cluster memory allotment in megabytes.
	DefaultMemoryMB = 4096

	// DefaultDiskSize is the cluster disk allotment.
	DefaultDiskSize = "20g"

	// DefaultStartTimeout bounds one "minikube start" attempt.
	DefaultStartTimeout = 5 * time.Minute

	// DefaultCommandTimeout bounds every other external command.
	DefaultCommandTimeout = 60 * time.Second

	// DefaultOutputDir receives assessment archives.
	DefaultOutputDir = "assessment_data"

	// DefaultManifestRoot holds the builtin scenario manifests.
	DefaultManifestRoot = "manifests"
)

// defaultAddons are enabled after every cluster start. metrics-server
// backs the "kubectl top" assessments.
func defaultAddons() []string {
	return []string{"metrics-server"}
}
