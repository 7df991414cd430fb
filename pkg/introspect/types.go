package introspect

import "encoding/json"

// Reserved annotation key prefixes that never appear in a NamespaceRecord.
// These are system-managed annotations with no value to the control plane.
var reservedAnnotationPrefixes = []string{
	"kubectl.kubernetes.io/",
	"kubernetes.io/",
	"k8s.io/",
	"control-plane.alpha.kubernetes.io/",
	"node.alpha.kubernetes.io/",
}

// NamespaceRecord is one row of introspected cluster state. Detail fields are
// only populated when detail collection is requested, and each is omitted
// when its sub-query failed.
type NamespaceRecord struct {
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"created_at,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`

	// Annotations holds user annotations only; reserved prefixes are filtered
	// out and the field is absent rather than empty when nothing remains.
	Annotations map[string]string `json:"annotations,omitempty"`

	ResourceQuotas []QuotaSummary `json:"resource_quotas,omitempty"`
	Pods           *PodSummary    `json:"pods,omitempty"`
	ServiceCount   *int           `json:"service_count,omitempty"`
}

// QuotaSummary condenses one ResourceQuota into its hard limits and usage.
type QuotaSummary struct {
	Name string            `json:"name"`
	Hard map[string]string `json:"hard,omitempty"`
	Used map[string]string `json:"used,omitempty"`
}

// PodSummary is a pod count broken down by phase.
type PodSummary struct {
	Total   int            `json:"total"`
	ByPhase map[string]int `json:"by_phase,omitempty"`
}

// Count is a best-effort counter. Known distinguishes "zero because the
// cluster has none" from "zero because the query failed"; the JSON contract
// collapses both to a bare number.
type Count struct {
	Value int
	Known bool
}

// KnownCount returns a Count holding an observed value.
func KnownCount(v int) Count {
	return Count{Value: v, Known: true}
}

// MarshalJSON collapses the Count to its bare value.
func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// UnmarshalJSON reads a bare value into a known Count.
func (c *Count) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.Value); err != nil {
		return err
	}
	c.Known = true
	return nil
}

// ClusterFacts aggregates the cluster-level values the registration path
// reports to the backend.
type ClusterFacts struct {
	NodeCount         Count  `json:"node_count"`
	KubernetesVersion string `json:"kubernetes_version"`
	NamespaceCount    Count  `json:"namespace_count"`
	ClusterType       string `json:"cluster_type,omitempty"`
}

// versionUnknown is reported when the server version query fails.
const versionUnknown = "unknown"

// DevelopmentFacts is the fixed fallback used when no ambient in-cluster
// context exists at all, so the agent can be exercised outside a real cluster.
func DevelopmentFacts() ClusterFacts {
	return ClusterFacts{
		NodeCount:         KnownCount(1),
		KubernetesVersion: versionUnknown,
		NamespaceCount:    KnownCount(1),
		ClusterType:       "development",
	}
}
