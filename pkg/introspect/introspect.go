// Package introspect performs read-only querying of cluster state under a
// resolved client configuration: namespaces, node count, and server version.
//
// Detail sub-queries (quotas, pod counts, service counts) and the
// cluster-level counts are deliberately degraded-not-failed: partial cluster
// visibility is more useful than none.
package introspect

import (
	"context"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
)

// Introspector queries one cluster through the given clientset.
type Introspector struct {
	Client kubernetes.Interface
}

// New returns an introspector over the given clientset.
func New(client kubernetes.Interface) *Introspector {
	return &Introspector{Client: client}
}

// ListNamespaces lists all namespaces visible under the resolved context.
// When includeDetails is set, each record is enriched with quota, pod, and
// service summaries; a failure in one of those sub-queries omits that block
// without aborting the listing.
func (i *Introspector) ListNamespaces(ctx context.Context, includeDetails bool) ([]NamespaceRecord, error) {
	start := time.Now()
	defer func() {
		introspectionDuration.Observe(time.Since(start).Seconds())
	}()

	nsList, err := i.Client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		introspectionTotal.WithLabelValues("error").Inc()
		return nil, agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "list namespaces")
	}

	records := make([]NamespaceRecord, 0, len(nsList.Items))
	for _, ns := range nsList.Items {
		record := NamespaceRecord{
			Name:        ns.Name,
			Status:      string(ns.Status.Phase),
			Labels:      copyIfNonEmpty(ns.Labels),
			Annotations: filterUserAnnotations(ns.Annotations),
		}

		if !ns.CreationTimestamp.IsZero() {
			record.CreatedAt = ns.CreationTimestamp.UTC().Format(time.RFC3339)
		}

		if includeDetails {
			i.attachDetails(ctx, &record)
		}

		records = append(records, record)
	}

	introspectionTotal.WithLabelValues("success").Inc()
	slog.Debug("listed namespaces", slog.Int("count", len(records)), slog.Bool("details", includeDetails))

	return records, nil
}

// DescribeCluster gathers the cluster-level facts for the registration path.
// Each query is independently best-effort: a list failure yields an unknown
// count and a version failure yields the literal "unknown".
func (i *Introspector) DescribeCluster(ctx context.Context) ClusterFacts {
	facts := ClusterFacts{KubernetesVersion: versionUnknown}

	if nodes, err := i.Client.CoreV1().Nodes().List(ctx, metav1.ListOptions{}); err != nil {
		subqueryDegradedTotal.WithLabelValues("nodes").Inc()
		slog.Warn("node count unavailable", slog.String("error", err.Error()))
	} else {
		facts.NodeCount = KnownCount(len(nodes.Items))
	}

	if version, err := i.Client.Discovery().ServerVersion(); err != nil {
		subqueryDegradedTotal.WithLabelValues("version").Inc()
		slog.Warn("server version unavailable", slog.String("error", err.Error()))
	} else {
		facts.KubernetesVersion = version.GitVersion
	}

	if namespaces, err := i.Client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{}); err != nil {
		subqueryDegradedTotal.WithLabelValues("namespaces").Inc()
		slog.Warn("namespace count unavailable", slog.String("error", err.Error()))
	} else {
		facts.NamespaceCount = KnownCount(len(namespaces.Items))
	}

	return facts
}

func copyIfNonEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// filterUserAnnotations drops reserved-prefix annotations. When nothing
// remains the result is nil, not an empty map.
func filterUserAnnotations(annotations map[string]string) map[string]string {
	var out map[string]string
	for k, v := range annotations {
		if hasReservedPrefix(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	return out
}

func hasReservedPrefix(key string) bool {
	for _, prefix := range reservedAnnotationPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
