package introspect

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/version"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	"k8s.io/utils/ptr"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
)

func newNamespace(name string, phase corev1.NamespacePhase, labels, annotations map[string]string) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Labels:            labels,
			Annotations:       annotations,
			CreationTimestamp: metav1.NewTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		},
		Status: corev1.NamespaceStatus{Phase: phase},
	}
}

func TestListNamespaces_Basic(t *testing.T) {
	client := fake.NewClientset(
		newNamespace("default", corev1.NamespaceActive, map[string]string{"team": "core"}, nil),
		newNamespace("doomed", corev1.NamespaceTerminating, nil, nil),
	)

	records, err := New(client).ListNamespaces(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := map[string]NamespaceRecord{}
	for _, r := range records {
		byName[r.Name] = r
	}

	assert.Equal(t, "Active", byName["default"].Status)
	assert.Equal(t, map[string]string{"team": "core"}, byName["default"].Labels)
	assert.Equal(t, "2024-03-01T12:00:00Z", byName["default"].CreatedAt)
	assert.Equal(t, "Terminating", byName["doomed"].Status)
	assert.Nil(t, byName["doomed"].Labels)
}

func TestListNamespaces_ZeroTimestampOmitted(t *testing.T) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "fresh"}}
	client := fake.NewClientset(ns)

	records, err := New(client).ListNamespaces(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].CreatedAt)
}

func TestListNamespaces_AnnotationFiltering(t *testing.T) {
	client := fake.NewClientset(newNamespace("mixed", corev1.NamespaceActive, nil, map[string]string{
		"kubectl.kubernetes.io/last-applied-configuration": "{}",
		"kubernetes.io/metadata.name":                      "mixed",
		"k8s.io/something":                                 "x",
		"control-plane.alpha.kubernetes.io/leader":         "x",
		"node.alpha.kubernetes.io/ttl":                     "0",
		"team.example.com/owner":                           "platform",
	}))

	records, err := New(client).ListNamespaces(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, map[string]string{"team.example.com/owner": "platform"}, records[0].Annotations)
}

func TestListNamespaces_AllReservedAnnotationsYieldsAbsent(t *testing.T) {
	client := fake.NewClientset(newNamespace("system", corev1.NamespaceActive, nil, map[string]string{
		"kubernetes.io/metadata.name": "system",
	}))

	records, err := New(client).ListNamespaces(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Annotations)

	// Absent in the JSON as well, not an empty map.
	data, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "annotations")
}

func TestListNamespaces_NoDetailSubQueriesWithoutFlag(t *testing.T) {
	client := fake.NewClientset(newNamespace("default", corev1.NamespaceActive, nil, nil))

	detailCalls := 0
	for _, res := range []string{"resourcequotas", "pods", "services"} {
		client.PrependReactor("list", res, func(k8stesting.Action) (bool, runtime.Object, error) {
			detailCalls++
			return false, nil, nil
		})
	}

	_, err := New(client).ListNamespaces(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, detailCalls)
}

func TestListNamespaces_WithDetails(t *testing.T) {
	quota := &corev1.ResourceQuota{
		ObjectMeta: metav1.ObjectMeta{Name: "compute", Namespace: "default"},
		Status: corev1.ResourceQuotaStatus{
			Hard: corev1.ResourceList{corev1.ResourcePods: resource.MustParse("10")},
			Used: corev1.ResourceList{corev1.ResourcePods: resource.MustParse("3")},
		},
	}
	runningPod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
	pendingPod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "batch", Namespace: "default"},
		Status:     corev1.PodStatus{Phase: corev1.PodPending},
	}
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"}}

	client := fake.NewClientset(
		newNamespace("default", corev1.NamespaceActive, nil, nil),
		quota, runningPod, pendingPod, svc,
	)

	records, err := New(client).ListNamespaces(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.Len(t, record.ResourceQuotas, 1)
	assert.Equal(t, "compute", record.ResourceQuotas[0].Name)
	assert.Equal(t, map[string]string{"pods": "10"}, record.ResourceQuotas[0].Hard)
	assert.Equal(t, map[string]string{"pods": "3"}, record.ResourceQuotas[0].Used)

	require.NotNil(t, record.Pods)
	assert.Equal(t, 2, record.Pods.Total)
	assert.Equal(t, map[string]int{"Running": 1, "Pending": 1}, record.Pods.ByPhase)

	assert.Equal(t, ptr.To(1), record.ServiceCount)
}

func TestListNamespaces_DetailFailureIsDegradedNotFatal(t *testing.T) {
	client := fake.NewClientset(
		newNamespace("default", corev1.NamespaceActive, nil, nil),
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"}},
	)
	client.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("pods is forbidden")
	})

	records, err := New(client).ListNamespaces(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Nil(t, records[0].Pods)
	assert.NotNil(t, records[0].ResourceQuotas)
	assert.Equal(t, ptr.To(1), records[0].ServiceCount)
}

func TestListNamespaces_ListFailure(t *testing.T) {
	client := fake.NewClientset()
	client.PrependReactor("list", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("connection refused")
	})

	records, err := New(client).ListNamespaces(context.Background(), false)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, agenterrors.HasCode(err, agenterrors.ErrCodeTransport))
}

func TestDescribeCluster(t *testing.T) {
	client := fake.NewClientset(
		&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-1"}},
		&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-2"}},
		newNamespace("default", corev1.NamespaceActive, nil, nil),
	)
	discovery := client.Discovery().(*fakediscovery.FakeDiscovery)
	discovery.FakedServerVersion = &version.Info{GitVersion: "v1.30.2"}

	facts := New(client).DescribeCluster(context.Background())

	assert.Equal(t, KnownCount(2), facts.NodeCount)
	assert.Equal(t, KnownCount(1), facts.NamespaceCount)
	assert.Equal(t, "v1.30.2", facts.KubernetesVersion)
	assert.Empty(t, facts.ClusterType)
}

func TestDescribeCluster_QueriesDegradeIndependently(t *testing.T) {
	client := fake.NewClientset(newNamespace("default", corev1.NamespaceActive, nil, nil))
	client.PrependReactor("list", "nodes", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, fmt.Errorf("nodes is forbidden")
	})

	facts := New(client).DescribeCluster(context.Background())

	assert.False(t, facts.NodeCount.Known)
	assert.Zero(t, facts.NodeCount.Value)
	assert.Equal(t, KnownCount(1), facts.NamespaceCount)
	// The fake discovery client reports a default version rather than failing,
	// so only the node count degrades here.
	assert.NotEmpty(t, facts.KubernetesVersion)
}

func TestCount_JSONCollapsesToBareNumber(t *testing.T) {
	data, err := json.Marshal(ClusterFacts{
		NodeCount:         KnownCount(3),
		KubernetesVersion: "v1.30.2",
		NamespaceCount:    Count{}, // failed query still serializes as 0
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"node_count":3,"kubernetes_version":"v1.30.2","namespace_count":0}`, string(data))
}

func TestDevelopmentFacts(t *testing.T) {
	facts := DevelopmentFacts()
	assert.Equal(t, 1, facts.NodeCount.Value)
	assert.Equal(t, 1, facts.NamespaceCount.Value)
	assert.Equal(t, "unknown", facts.KubernetesVersion)
	assert.Equal(t, "development", facts.ClusterType)
}
