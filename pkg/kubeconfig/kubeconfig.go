// Package kubeconfig synthesizes portable kubeconfig documents for onboarded
// clusters and manages their on-disk lifecycle.
//
// One document exists per cluster name; writing overwrites, deleting is
// idempotent. The agent itself never reads the documents back. They exist
// for other tooling to consume.
package kubeconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
)

const (
	apiVersion = "v1"
	kind       = "Config"

	// fileExtension is appended to the cluster name to form the document file name.
	fileExtension = ".kubeconfig"

	filePerm = 0o600
	dirPerm  = 0o755
)

// Document is the serialized kubeconfig written for an onboarded cluster.
type Document struct {
	APIVersion     string         `yaml:"apiVersion"`
	Kind           string         `yaml:"kind"`
	Clusters       []ClusterEntry `yaml:"clusters"`
	Contexts       []ContextEntry `yaml:"contexts"`
	CurrentContext string         `yaml:"current-context"`
	Users          []UserEntry    `yaml:"users"`
}

// ClusterEntry is a named cluster within a Document.
type ClusterEntry struct {
	Name    string        `yaml:"name"`
	Cluster ClusterDetail `yaml:"cluster"`
}

// ClusterDetail holds the API server endpoint and its TLS policy. Exactly one
// of CertificateAuthorityData or InsecureSkipTLSVerify is set.
type ClusterDetail struct {
	Server                   string `yaml:"server"`
	CertificateAuthorityData string `yaml:"certificate-authority-data,omitempty"`
	InsecureSkipTLSVerify    bool   `yaml:"insecure-skip-tls-verify,omitempty"`
}

// ContextEntry binds a cluster to a user under a context name.
type ContextEntry struct {
	Name    string        `yaml:"name"`
	Context ContextDetail `yaml:"context"`
}

// ContextDetail names the cluster and user a context refers to.
type ContextDetail struct {
	Cluster string `yaml:"cluster"`
	User    string `yaml:"user"`
}

// UserEntry holds the bearer token for a named user.
type UserEntry struct {
	Name string     `yaml:"name"`
	User UserDetail `yaml:"user"`
}

// UserDetail carries the bearer token used to authenticate.
type UserDetail struct {
	Token string `yaml:"token"`
}

// Params are the caller-supplied fields for synthesizing a Document.
type Params struct {
	ClusterName  string
	ContextName  string
	ServerURL    string
	Token        string
	UseSecureTLS bool

	// CAData is base64-encoded certificate authority data. Only embedded when
	// UseSecureTLS is true.
	CAData string
}

// Build synthesizes a Document from the given parameters. When UseSecureTLS
// is false the document carries an explicit insecure flag and never a CA;
// when true, CA data is embedded if supplied.
func Build(p Params) Document {
	detail := ClusterDetail{Server: p.ServerURL}
	if p.UseSecureTLS {
		detail.CertificateAuthorityData = p.CAData
	} else {
		detail.InsecureSkipTLSVerify = true
	}

	userName := p.ClusterName + "-user"

	return Document{
		APIVersion: apiVersion,
		Kind:       kind,
		Clusters: []ClusterEntry{
			{Name: p.ClusterName, Cluster: detail},
		},
		Contexts: []ContextEntry{
			{Name: p.ContextName, Context: ContextDetail{Cluster: p.ClusterName, User: userName}},
		},
		CurrentContext: p.ContextName,
		Users: []UserEntry{
			{Name: userName, User: UserDetail{Token: p.Token}},
		},
	}
}

// Store writes and removes kubeconfig documents under a fixed directory,
// keyed by cluster name. Concurrent operations on distinct cluster names are
// safe; callers must serialize operations on the same name themselves.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the deterministic document path for a cluster name.
func (s *Store) Path(clusterName string) string {
	return filepath.Join(s.Dir, clusterName+fileExtension)
}

// Write synthesizes the document for p and persists it, overwriting any
// previous document for the same cluster name. Returns the written path.
func (s *Store) Write(p Params) (string, error) {
	if err := os.MkdirAll(s.Dir, dirPerm); err != nil {
		return "", agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "create kubeconfig directory %q", s.Dir)
	}

	doc := Build(p)
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("marshal kubeconfig for cluster %q: %w", p.ClusterName, err)
	}

	path := s.Path(p.ClusterName)
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return "", agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "write kubeconfig %q", path)
	}

	return path, nil
}

// Delete removes the document for clusterName. A document that is already
// absent counts as success so upstream retries stay idempotent.
func (s *Store) Delete(clusterName string) error {
	path := s.Path(clusterName)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "remove kubeconfig %q", path)
	}
	return nil
}
