// Package registration ships introspected cluster facts to the onboarding
// backend so the cluster becomes a managed entity.
//
// The HTTP client used here honors the agent's backend TLS policy, which is
// independent of the Kubernetes API TLS policy carried by each event. A fresh
// client is built per registration client; nothing is pooled across
// invocations.
package registration

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
	"github.com/kubeorbit/cluster-agent/pkg/introspect"
)

const (
	// AgentVersion is reported in every registration request.
	AgentVersion = "1.0.0"

	// defaultProvider names the provider when the caller supplies none.
	defaultProvider = "kubernetes"

	headerAgentID = "agent_id"
	headerAPIKey  = "X-API-Key"

	requestTimeout = 30 * time.Second
)

// Request is the outbound registration document.
type Request struct {
	ClusterName  string   `json:"cluster_name"`
	ContextName  string   `json:"context_name"`
	ProviderName string   `json:"provider_name"`
	UseSecureTLS bool     `json:"use_secure_tls"`
	Tags         []string `json:"tags,omitempty"`
	Metadata     Metadata `json:"metadata"`
}

// Metadata embeds the agent identity and the introspected cluster facts.
type Metadata struct {
	AgentID           string                  `json:"agent_id"`
	AgentVersion      string                  `json:"agent_version"`
	NodeCount         introspect.Count        `json:"node_count"`
	KubernetesVersion string                  `json:"kubernetes_version"`
	Provider          string                  `json:"provider"`
	NamespaceCount    introspect.Count        `json:"namespace_count"`
	ClusterInfo       introspect.ClusterFacts `json:"cluster_info"`
}

// Overrides are caller-supplied optional fields. Zero values leave the
// computed defaults in place.
type Overrides struct {
	ContextName  string
	ProviderName string
	Tags         []string

	// UseSecureTLS overrides the reported TLS policy flag; nil keeps the
	// default of true.
	UseSecureTLS *bool
}

// Client registers clusters with the onboarding backend.
type Client struct {
	cfg        *config.AgentConfig
	httpClient *http.Client
}

// New builds a registration client for the given configuration. The
// transport skips certificate verification only when the backend TLS policy
// says so.
func New(cfg *config.AgentConfig) *Client {
	transport := http.DefaultTransport
	if cfg.SkipBackendTLSVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// Register POSTs the cluster facts to the backend. Missing agent identity,
// API key, or backend URL is a fatal configuration error reported before any
// network call; any backend status other than 201 is a rejection carrying
// the status code.
func (c *Client) Register(ctx context.Context, clusterName string, facts introspect.ClusterFacts, ov Overrides) error {
	if err := c.cfg.ValidateRegistration(); err != nil {
		return err
	}

	body := c.buildRequest(clusterName, facts, ov)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal registration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BackendURL, bytes.NewReader(payload))
	if err != nil {
		return agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "build registration request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAgentID, c.cfg.AgentID)
	req.Header.Set(headerAPIKey, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		registrationTotal.WithLabelValues("transport_error").Inc()
		return agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "registration POST to %s", c.cfg.BackendURL)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		registrationTotal.WithLabelValues("rejected").Inc()
		return agenterrors.New(agenterrors.ErrCodeBackendRejected,
			"backend returned status %d for cluster %q", resp.StatusCode, clusterName)
	}

	registrationTotal.WithLabelValues("success").Inc()
	slog.Info("cluster registered",
		slog.String("cluster", clusterName),
		slog.String("backend", c.cfg.BackendURL),
	)

	return nil
}

func (c *Client) buildRequest(clusterName string, facts introspect.ClusterFacts, ov Overrides) Request {
	contextName := clusterName + "-context"
	if ov.ContextName != "" {
		contextName = ov.ContextName
	}

	provider := defaultProvider
	if ov.ProviderName != "" {
		provider = ov.ProviderName
	}

	useSecureTLS := true
	if ov.UseSecureTLS != nil {
		useSecureTLS = *ov.UseSecureTLS
	}

	return Request{
		ClusterName:  clusterName,
		ContextName:  contextName,
		ProviderName: provider,
		UseSecureTLS: useSecureTLS,
		Tags:         ov.Tags,
		Metadata: Metadata{
			AgentID:           c.cfg.AgentID,
			AgentVersion:      AgentVersion,
			NodeCount:         facts.NodeCount,
			KubernetesVersion: facts.KubernetesVersion,
			Provider:          provider,
			NamespaceCount:    facts.NamespaceCount,
			ClusterInfo:       facts,
		},
	}
}
