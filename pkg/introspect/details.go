package introspect

import (
	"context"
	"log/slog"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// attachDetails enriches one namespace record with quota, pod, and service
// summaries. Each sub-query is independently best-effort; a failure omits
// that block and bumps the degraded counter.
func (i *Introspector) attachDetails(ctx context.Context, record *NamespaceRecord) {
	if quotas, err := i.collectQuotas(ctx, record.Name); err != nil {
		subqueryDegradedTotal.WithLabelValues("quotas").Inc()
		slog.Warn("quota summary unavailable",
			slog.String("namespace", record.Name),
			slog.String("error", err.Error()),
		)
	} else {
		record.ResourceQuotas = quotas
	}

	if pods, err := i.collectPods(ctx, record.Name); err != nil {
		subqueryDegradedTotal.WithLabelValues("pods").Inc()
		slog.Warn("pod summary unavailable",
			slog.String("namespace", record.Name),
			slog.String("error", err.Error()),
		)
	} else {
		record.Pods = pods
	}

	if count, err := i.collectServiceCount(ctx, record.Name); err != nil {
		subqueryDegradedTotal.WithLabelValues("services").Inc()
		slog.Warn("service count unavailable",
			slog.String("namespace", record.Name),
			slog.String("error", err.Error()),
		)
	} else {
		record.ServiceCount = &count
	}
}

func (i *Introspector) collectQuotas(ctx context.Context, namespace string) ([]QuotaSummary, error) {
	quotaList, err := i.Client.CoreV1().ResourceQuotas(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	summaries := make([]QuotaSummary, 0, len(quotaList.Items))
	for _, quota := range quotaList.Items {
		summary := QuotaSummary{Name: quota.Name}
		if len(quota.Status.Hard) > 0 {
			summary.Hard = make(map[string]string, len(quota.Status.Hard))
			for resource, quantity := range quota.Status.Hard {
				summary.Hard[string(resource)] = quantity.String()
			}
		}
		if len(quota.Status.Used) > 0 {
			summary.Used = make(map[string]string, len(quota.Status.Used))
			for resource, quantity := range quota.Status.Used {
				summary.Used[string(resource)] = quantity.String()
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (i *Introspector) collectPods(ctx context.Context, namespace string) (*PodSummary, error) {
	podList, err := i.Client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	summary := &PodSummary{Total: len(podList.Items)}
	for _, pod := range podList.Items {
		if summary.ByPhase == nil {
			summary.ByPhase = make(map[string]int)
		}
		summary.ByPhase[string(pod.Status.Phase)]++
	}
	return summary, nil
}

func (i *Introspector) collectServiceCount(ctx context.Context, namespace string) (int, error) {
	svcList, err := i.Client.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, err
	}
	return len(svcList.Items), nil
}
