package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
	"github.com/kubeorbit/cluster-agent/pkg/introspect"
	"github.com/kubeorbit/cluster-agent/pkg/kube"
	"github.com/kubeorbit/cluster-agent/pkg/kubeconfig"
	"github.com/kubeorbit/cluster-agent/pkg/registration"
)

type stubRegistrar struct {
	calls int
	err   error
}

func (s *stubRegistrar) Register(_ context.Context, _ string, _ introspect.ClusterFacts, _ registration.Overrides) error {
	s.calls++
	return s.err
}

func newTestServer(t *testing.T, client kubernetes.Interface) *Server {
	t.Helper()

	cfg := &config.AgentConfig{
		AgentID:       "agent-1",
		ClusterName:   "c1",
		KubeconfigDir: t.TempDir(),
	}

	d := &dispatcher.Dispatcher{
		Config:    cfg,
		Store:     kubeconfig.NewStore(cfg.KubeconfigDir),
		Registrar: &stubRegistrar{},
		Resolve: func(access kube.ClusterAccess) (*rest.Config, kube.Mode, error) {
			if access.HasExternal() {
				return &rest.Config{Host: access.ServerURL}, kube.ModeExternal, nil
			}
			return &rest.Config{Host: "https://in-cluster"}, kube.ModeInCluster, nil
		},
		NewClientset: func(*rest.Config) (kubernetes.Interface, error) {
			return client, nil
		},
	}

	return New(DefaultConfig(), d)
}

func postEvent(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleDefault(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())
	s.setReady(true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Ready   bool     `json:"ready"`
		Routes  []string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cluster-agent", resp.Name)
	assert.Equal(t, registration.AgentVersion, resp.Version)
	assert.True(t, resp.Ready)
	assert.Contains(t, resp.Routes, "POST /v1/events")
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestHandleReady(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())
	handler := s.setupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.setReady(true)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleEventsOnboard(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())

	rec := postEvent(t, s.setupRoutes(), `{
		"operation": "onboard",
		"cluster_name": "c1",
		"context_name": "ctx1",
		"server_url": "https://example.com:6443",
		"token": "tok",
		"use_secure_tls": false
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, `cluster "c1" onboarded`)
}

func TestHandleEventsGetNamespaces(t *testing.T) {
	client := fake.NewClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "default"}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "kube-system"}},
	)
	s := newTestServer(t, client)

	rec := postEvent(t, s.setupRoutes(), `{
		"operation": "get-namespaces",
		"server_url": "https://example.com:6443",
		"token": "tok"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Namespaces []json.RawMessage `json:"namespaces"`
		TotalCount int               `json:"total_count"`
		ClusterInfo struct {
			ConfigType string `json:"config_type"`
			AgentID    string `json:"agent_id"`
		} `json:"cluster_info"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalCount)
	assert.Len(t, resp.Namespaces, 2)
	assert.Equal(t, "external", resp.ClusterInfo.ConfigType)
	assert.Equal(t, "agent-1", resp.ClusterInfo.AgentID)
}

func TestHandleEventsValidationMessage(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())

	rec := postEvent(t, s.setupRoutes(), `{"operation": "onboard"}`)

	// Payload mistakes are reported as messages, not HTTP failures.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "missing required field")
}

func TestHandleEventsInvalidBody(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())

	rec := postEvent(t, s.setupRoutes(), `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestHandleEventsMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleEventsRateLimited(t *testing.T) {
	s := newTestServer(t, fake.NewClientset())
	s.limiter.SetLimit(0)
	s.limiter.SetBurst(0)

	rec := postEvent(t, s.setupRoutes(), `{"operation": "delete", "cluster_name": "c1"}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp.Code)
}

func TestRunGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0 // ephemeral port
	s := newTestServer(t, fake.NewClientset())
	s.cfg = cfg

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)
	assert.False(t, s.isReady())
}
