package collect

// Assessment is one kubectl invocation of the collection battery. Name
// doubles as the flat-file suffix, so it encodes the command line in a
// form that survives as a filename.
type Assessment struct {
	Name        string
	Description string
	Args        []string
}

// Assessments returns the battery of kubectl commands run for every
// scenario. The set covers cluster identity, node and pod state, resource
// usage, events, and the service table where a LoadBalancer shows its
// <pending> external IP.
func Assessments() []Assessment {
	return []Assessment{
		{
			Name:        "cluster-info",
			Description: "Basic cluster information",
			Args:        []string{"cluster-info"},
		},
		{
			Name:        "get_nodes_-o_wide",
			Description: "Node status and details",
			Args:        []string{"get", "nodes", "-o", "wide"},
		},
		{
			Name:        "get_pods_--all-namespaces_--field-selector=status.phase!=Running",
			Description: "Non-running pods",
			Args:        []string{"get", "pods", "--all-namespaces", "--field-selector=status.phase!=Running"},
		},
		{
			Name:        "top_nodes",
			Description: "Node resource usage",
			Args:        []string{"top", "nodes"},
		},
		{
			Name:        "top_pods_--all-namespaces",
			Description: "Pod resource usage",
			Args:        []string{"top", "pods", "--all-namespaces"},
		},
		{
			Name:        "get_componentstatuses",
			Description: "Component health status",
			Args:        []string{"get", "componentstatuses"},
		},
		{
			Name:        "get_events_--all-namespaces_--sort-by='.lastTimestamp'",
			Description: "Recent cluster events",
			Args:        []string{"get", "events", "--all-namespaces", "--sort-by=.lastTimestamp"},
		},
		{
			Name:        "get_pods_--all-namespaces",
			Description: "All pods detailed view",
			Args:        []string{"get", "pods", "--all-namespaces", "-o", "wide"},
		},
		{
			Name:        "get_services_--all-namespaces",
			Description: "All services",
			Args:        []string{"get", "services", "--all-namespaces"},
		},
		{
			Name:        "get_deployments_--all-namespaces",
			Description: "All deployments",
			Args:        []string{"get", "deployments", "--all-namespaces"},
		},
	}
}
