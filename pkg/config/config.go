// Package config holds the immutable agent configuration.
//
// Configuration is read from the environment exactly once at process start
// and passed explicitly to the components that need it. There are two
// distinct TLS trust decisions in the agent: the Kubernetes API policy
// travels with each event, while SkipBackendTLSVerify applies only to the
// registration call against the onboarding backend. They are kept as
// separate fields so they cannot be conflated.
package config

import (
	"log/slog"
	"os"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
)

// Environment variable names consumed by the agent.
const (
	EnvAgentID       = "AGENT_ID"
	EnvAPIKey        = "API_KEY"
	EnvBackendURL    = "BACKEND_URL"
	EnvClusterName   = "CLUSTER_NAME"
	EnvSkipTLSVerify = "SKIP_TLS_VERIFY"
	EnvKubeconfigDir = "KUBECONFIG_DIR"
	EnvLogLevel      = "LOG_LEVEL"
)

// DefaultClusterName is used when neither the environment nor the event
// supplies a cluster name.
const DefaultClusterName = "default-cluster"

// DefaultKubeconfigDir is where synthesized kubeconfig documents are stored.
const DefaultKubeconfigDir = "/var/lib/cluster-agent/kubeconfigs"

// AgentConfig is the agent's process-wide configuration.
type AgentConfig struct {
	// AgentID identifies this agent to the onboarding backend.
	AgentID string

	// APIKey authenticates registration calls against the backend.
	APIKey string

	// BackendURL is the onboarding backend registration endpoint.
	BackendURL string

	// ClusterName is the logical cluster name. Empty means fall back to the
	// event-supplied name, then DefaultClusterName.
	ClusterName string

	// SkipBackendTLSVerify disables certificate verification for the backend
	// registration call only. It never affects Kubernetes API connections.
	SkipBackendTLSVerify bool

	// KubeconfigDir is the directory for synthesized kubeconfig documents.
	KubeconfigDir string

	// LogLevel selects the slog level (debug, info, warn, error).
	LogLevel string
}

// FromEnv builds the agent configuration from the environment.
func FromEnv() *AgentConfig {
	cfg := &AgentConfig{
		AgentID:              os.Getenv(EnvAgentID),
		APIKey:               os.Getenv(EnvAPIKey),
		BackendURL:           os.Getenv(EnvBackendURL),
		ClusterName:          os.Getenv(EnvClusterName),
		SkipBackendTLSVerify: os.Getenv(EnvSkipTLSVerify) == "true",
		KubeconfigDir:        DefaultKubeconfigDir,
		LogLevel:             slog.LevelInfo.String(),
	}

	if dir := os.Getenv(EnvKubeconfigDir); dir != "" {
		cfg.KubeconfigDir = dir
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// ResolveClusterName picks the effective cluster name: the configured name,
// then the event-supplied name, then DefaultClusterName.
func (c *AgentConfig) ResolveClusterName(eventName string) string {
	if c.ClusterName != "" {
		return c.ClusterName
	}
	if eventName != "" {
		return eventName
	}
	return DefaultClusterName
}

// ValidateRegistration checks the preconditions for talking to the backend.
// Any missing value is a fatal configuration error naming the missing item;
// no network call may be attempted before this passes.
func (c *AgentConfig) ValidateRegistration() error {
	if c.AgentID == "" {
		return agenterrors.New(agenterrors.ErrCodeConfig, "%s is not set", EnvAgentID)
	}
	if c.APIKey == "" {
		return agenterrors.New(agenterrors.ErrCodeConfig, "%s is not set", EnvAPIKey)
	}
	if c.BackendURL == "" {
		return agenterrors.New(agenterrors.ErrCodeConfig, "%s is not set", EnvBackendURL)
	}
	return nil
}
