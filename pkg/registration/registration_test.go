package registration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
	"github.com/kubeorbit/cluster-agent/pkg/introspect"
)

func testConfig(backendURL string) *config.AgentConfig {
	return &config.AgentConfig{
		AgentID:    "a1",
		APIKey:     "k1",
		BackendURL: backendURL,
	}
}

func testFacts() introspect.ClusterFacts {
	return introspect.ClusterFacts{
		NodeCount:         introspect.KnownCount(3),
		KubernetesVersion: "v1.30.2",
		NamespaceCount:    introspect.KnownCount(7),
	}
}

func TestRegister_Success(t *testing.T) {
	var captured *http.Request
	var body Request

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	client := New(testConfig(backend.URL))
	err := client.Register(context.Background(), "c1", testFacts(), Overrides{})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
	assert.Equal(t, "a1", captured.Header.Get("agent_id"))
	assert.Equal(t, "k1", captured.Header.Get("X-API-Key"))

	assert.Equal(t, "c1", body.ClusterName)
	assert.Equal(t, "c1-context", body.ContextName)
	assert.Equal(t, "kubernetes", body.ProviderName)
	assert.True(t, body.UseSecureTLS)
	assert.Empty(t, body.Tags)
	assert.Equal(t, "a1", body.Metadata.AgentID)
	assert.Equal(t, AgentVersion, body.Metadata.AgentVersion)
	assert.Equal(t, 3, body.Metadata.NodeCount.Value)
	assert.Equal(t, "v1.30.2", body.Metadata.KubernetesVersion)
	assert.Equal(t, 7, body.Metadata.NamespaceCount.Value)
	assert.Equal(t, "v1.30.2", body.Metadata.ClusterInfo.KubernetesVersion)
}

func TestRegister_Overrides(t *testing.T) {
	var body Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	client := New(testConfig(backend.URL))
	err := client.Register(context.Background(), "c1", testFacts(), Overrides{
		ContextName:  "custom-ctx",
		ProviderName: "openshift",
		Tags:         []string{"prod", "eu-west"},
		UseSecureTLS: ptr.To(false),
	})
	require.NoError(t, err)

	assert.Equal(t, "custom-ctx", body.ContextName)
	assert.Equal(t, "openshift", body.ProviderName)
	assert.Equal(t, "openshift", body.Metadata.Provider)
	assert.Equal(t, []string{"prod", "eu-west"}, body.Tags)
	assert.False(t, body.UseSecureTLS)
}

func TestRegister_NonCreatedStatusIsRejection(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	client := New(testConfig(backend.URL))
	err := client.Register(context.Background(), "c1", testFacts(), Overrides{})

	require.Error(t, err)
	assert.True(t, agenterrors.HasCode(err, agenterrors.ErrCodeBackendRejected))
	assert.Contains(t, err.Error(), "500")
}

func TestRegister_OKIsStillRejection(t *testing.T) {
	// Only 201 counts as success.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	err := New(testConfig(backend.URL)).Register(context.Background(), "c1", testFacts(), Overrides{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "200")
}

func TestRegister_MissingConfigIssuesNoRequest(t *testing.T) {
	requests := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	tests := []struct {
		name string
		cfg  *config.AgentConfig
	}{
		{"no agent id", &config.AgentConfig{APIKey: "k1", BackendURL: backend.URL}},
		{"no api key", &config.AgentConfig{AgentID: "a1", BackendURL: backend.URL}},
		{"no backend url", &config.AgentConfig{AgentID: "a1", APIKey: "k1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.cfg).Register(context.Background(), "c1", testFacts(), Overrides{})
			require.Error(t, err)
			assert.True(t, agenterrors.HasCode(err, agenterrors.ErrCodeConfig))
		})
	}

	assert.Zero(t, requests)
}

func TestRegister_TransportError(t *testing.T) {
	// Point at a server that is already closed.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	err := New(testConfig(backend.URL)).Register(context.Background(), "c1", testFacts(), Overrides{})

	require.Error(t, err)
	assert.True(t, agenterrors.HasCode(err, agenterrors.ErrCodeTransport))
}
