package dispatcher

import (
	"fmt"

	"github.com/kubeorbit/cluster-agent/pkg/kube"
	"github.com/kubeorbit/cluster-agent/pkg/kubeconfig"
)

// Event is the loosely typed payload the agent receives. It is parsed into a
// typed request at the boundary; nothing downstream touches the raw map.
type Event map[string]any

// Supported operation names.
const (
	OpOnboard       = "onboard"
	OpDelete        = "delete"
	OpGetNamespaces = "get-namespaces"
	OpRegister      = "register"
)

var operations = []string{OpOnboard, OpDelete, OpGetNamespaces, OpRegister}

// Event field keys.
const (
	keyOperation      = "operation"
	keyClusterName    = "cluster_name"
	keyContextName    = "context_name"
	keyServerURL      = "server_url"
	keyToken          = "token"
	keyUseSecureTLS   = "use_secure_tls"
	keyCAData         = "ca_data"
	keyCertData       = "cert_data"
	keyKeyData        = "key_data"
	keyIncludeDetails = "include_details"
	keyProviderName   = "provider_name"
	keyTags           = "tags"
)

// parseError is a tier-1 validation failure: a caller mistake in the event
// payload, reported as a descriptive message with a nil Go error.
type parseError struct {
	msg string
}

func (e *parseError) Error() string { return e.msg }

func missingField(key string) *parseError {
	return &parseError{msg: fmt.Sprintf("missing required field %q", key)}
}

func mistypedField(key, want string) *parseError {
	return &parseError{msg: fmt.Sprintf("field %q must be a %s", key, want)}
}

func requiredString(e Event, key string) (string, *parseError) {
	raw, ok := e[key]
	if !ok || raw == nil {
		return "", missingField(key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", mistypedField(key, "string")
	}
	if s == "" {
		return "", missingField(key)
	}
	return s, nil
}

func optionalString(e Event, key string) (string, *parseError) {
	raw, ok := e[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", mistypedField(key, "string")
	}
	return s, nil
}

func requiredBool(e Event, key string) (bool, *parseError) {
	raw, ok := e[key]
	if !ok || raw == nil {
		return false, missingField(key)
	}
	b, ok := raw.(bool)
	if !ok {
		return false, mistypedField(key, "boolean")
	}
	return b, nil
}

// optionalBool returns nil when the field is absent so callers can
// distinguish "not supplied" from an explicit false.
func optionalBool(e Event, key string) (*bool, *parseError) {
	raw, ok := e[key]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, mistypedField(key, "boolean")
	}
	return &b, nil
}

func optionalStringSlice(e Event, key string) ([]string, *parseError) {
	raw, ok := e[key]
	if !ok || raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		// A payload decoded outside encoding/json may carry the typed form.
		if typed, ok := raw.([]string); ok {
			return typed, nil
		}
		return nil, mistypedField(key, "string array")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, mistypedField(key, "string array")
		}
		out = append(out, s)
	}
	return out, nil
}

// OnboardRequest synthesizes and stores a kubeconfig for a cluster.
type OnboardRequest struct {
	ClusterName  string
	ContextName  string
	ServerURL    string
	Token        string
	UseSecureTLS bool
	CAData       string
}

// Params converts the request into synthesizer parameters.
func (r OnboardRequest) Params() kubeconfig.Params {
	return kubeconfig.Params{
		ClusterName:  r.ClusterName,
		ContextName:  r.ContextName,
		ServerURL:    r.ServerURL,
		Token:        r.Token,
		UseSecureTLS: r.UseSecureTLS,
		CAData:       r.CAData,
	}
}

func parseOnboard(e Event) (OnboardRequest, *parseError) {
	var req OnboardRequest
	var err *parseError

	if req.ClusterName, err = requiredString(e, keyClusterName); err != nil {
		return req, err
	}
	if req.ContextName, err = requiredString(e, keyContextName); err != nil {
		return req, err
	}
	if req.ServerURL, err = requiredString(e, keyServerURL); err != nil {
		return req, err
	}
	if req.Token, err = requiredString(e, keyToken); err != nil {
		return req, err
	}
	if req.UseSecureTLS, err = requiredBool(e, keyUseSecureTLS); err != nil {
		return req, err
	}
	if req.CAData, err = optionalString(e, keyCAData); err != nil {
		return req, err
	}
	return req, nil
}

// DeleteRequest removes a cluster's stored kubeconfig.
type DeleteRequest struct {
	ClusterName string
}

func parseDelete(e Event) (DeleteRequest, *parseError) {
	var req DeleteRequest
	var err *parseError
	if req.ClusterName, err = requiredString(e, keyClusterName); err != nil {
		return req, err
	}
	return req, nil
}

// GetNamespacesRequest lists namespaces under a resolved credential context.
type GetNamespacesRequest struct {
	ClusterName    string
	IncludeDetails bool
	Access         kube.ClusterAccess
}

func parseGetNamespaces(e Event) (GetNamespacesRequest, *parseError) {
	var req GetNamespacesRequest

	access, err := parseAccess(e)
	if err != nil {
		return req, err
	}
	req.Access = access

	if req.ClusterName, err = optionalString(e, keyClusterName); err != nil {
		return req, err
	}

	details, err := optionalBool(e, keyIncludeDetails)
	if err != nil {
		return req, err
	}
	req.IncludeDetails = details != nil && *details

	return req, nil
}

// RegisterRequest introspects a cluster and reports it to the backend.
type RegisterRequest struct {
	ClusterName  string
	ContextName  string
	ProviderName string
	Tags         []string
	UseSecureTLS *bool
	Access       kube.ClusterAccess
}

func parseRegister(e Event) (RegisterRequest, *parseError) {
	var req RegisterRequest

	access, err := parseAccess(e)
	if err != nil {
		return req, err
	}
	req.Access = access

	if req.ClusterName, err = optionalString(e, keyClusterName); err != nil {
		return req, err
	}
	if req.ContextName, err = optionalString(e, keyContextName); err != nil {
		return req, err
	}
	if req.ProviderName, err = optionalString(e, keyProviderName); err != nil {
		return req, err
	}
	if req.Tags, err = optionalStringSlice(e, keyTags); err != nil {
		return req, err
	}
	if req.UseSecureTLS, err = optionalBool(e, keyUseSecureTLS); err != nil {
		return req, err
	}
	return req, nil
}

// parseAccess extracts the optional external cluster connection fields shared
// by the introspection and registration operations.
func parseAccess(e Event) (kube.ClusterAccess, *parseError) {
	var access kube.ClusterAccess
	var err *parseError

	if access.ServerURL, err = optionalString(e, keyServerURL); err != nil {
		return access, err
	}
	if access.Token, err = optionalString(e, keyToken); err != nil {
		return access, err
	}

	secure, err := optionalBool(e, keyUseSecureTLS)
	if err != nil {
		return access, err
	}
	access.UseSecureTLS = secure != nil && *secure

	if access.CAData, err = optionalString(e, keyCAData); err != nil {
		return access, err
	}
	if access.CertData, err = optionalString(e, keyCertData); err != nil {
		return access, err
	}
	if access.KeyData, err = optionalString(e, keyKeyData); err != nil {
		return access, err
	}
	return access, nil
}
