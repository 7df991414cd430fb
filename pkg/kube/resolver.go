// Package kube resolves Kubernetes client configurations for the agent.
//
// Resolution happens fresh on every invocation: either the caller supplied
// an external server URL and bearer token, or the agent falls back to the
// in-cluster service-account context. Nothing is cached between calls.
package kube

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
)

const pemHeader = "-----BEGIN"

// Mode records which credential context produced a client configuration.
type Mode string

const (
	// ModeInCluster means the service-account context mounted into the pod.
	ModeInCluster Mode = "in-cluster"

	// ModeExternal means caller-supplied server URL and credentials.
	ModeExternal Mode = "external"
)

// ClusterAccess carries the caller-supplied fields for an external cluster
// connection. TLS material is base64-encoded as it appears in kubeconfig
// documents; raw PEM is accepted as well.
type ClusterAccess struct {
	ServerURL    string
	Token        string
	UseSecureTLS bool
	CAData       string
	CertData     string
	KeyData      string
}

// HasExternal reports whether the access fields describe a usable external
// context: a server URL plus either a bearer token or a client cert pair.
func (a ClusterAccess) HasExternal() bool {
	if a.ServerURL == "" {
		return false
	}
	return a.Token != "" || (a.CertData != "" && a.KeyData != "")
}

// inClusterConfig is swapped out in tests.
var inClusterConfig = rest.InClusterConfig

// Resolve builds the client configuration for one invocation. Externally
// supplied credentials win when complete; otherwise the ambient in-cluster
// context is attempted. Failing both is a hard configuration error.
func Resolve(access ClusterAccess) (*rest.Config, Mode, error) {
	if access.HasExternal() {
		cfg, err := externalConfig(access)
		if err != nil {
			return nil, "", err
		}
		return cfg, ModeExternal, nil
	}

	cfg, err := inClusterConfig()
	if err != nil {
		return nil, "", agenterrors.Wrap(err, agenterrors.ErrCodeConfig,
			"no in-cluster context and no external cluster configuration provided")
	}
	return cfg, ModeInCluster, nil
}

func externalConfig(access ClusterAccess) (*rest.Config, error) {
	cfg := &rest.Config{
		Host:        access.ServerURL,
		BearerToken: access.Token,
	}

	if !access.UseSecureTLS {
		cfg.TLSClientConfig = rest.TLSClientConfig{Insecure: true}
		return cfg, nil
	}

	if access.CAData != "" {
		ca, err := decodeTLSBlob(access.CAData)
		if err != nil {
			return nil, agenterrors.Wrap(err, agenterrors.ErrCodeInvalidInput, "decode CA data")
		}
		cfg.TLSClientConfig.CAData = ca
	}

	if access.CertData != "" && access.KeyData != "" {
		cert, err := decodeTLSBlob(access.CertData)
		if err != nil {
			return nil, agenterrors.Wrap(err, agenterrors.ErrCodeInvalidInput, "decode client certificate data")
		}
		key, err := decodeTLSBlob(access.KeyData)
		if err != nil {
			return nil, agenterrors.Wrap(err, agenterrors.ErrCodeInvalidInput, "decode client key data")
		}
		cfg.TLSClientConfig.CertData = cert
		cfg.TLSClientConfig.KeyData = key
	}

	return cfg, nil
}

// decodeTLSBlob accepts base64-encoded PEM material, or raw PEM directly.
// The decoded bytes must carry a PEM block: arbitrary strings that happen to
// be valid base64 (a pasted token, a filename) would otherwise be accepted as
// TLS material and fail much later with an opaque handshake error.
func decodeTLSBlob(data string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil && bytes.Contains(decoded, []byte(pemHeader)) {
		return decoded, nil
	}
	if strings.HasPrefix(data, pemHeader) {
		return []byte(data), nil
	}
	return nil, fmt.Errorf("not base64-encoded PEM and not raw PEM")
}

// NewClientset creates a Kubernetes clientset from a resolved configuration.
func NewClientset(cfg *rest.Config) (kubernetes.Interface, error) {
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	return client, nil
}
