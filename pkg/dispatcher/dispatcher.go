// Package dispatcher routes agent event payloads to the onboarding,
// teardown, introspection, and registration components.
//
// The payload is parsed into a typed request before any work happens.
// Malformed payloads are caller mistakes, not system faults: they produce a
// descriptive message with a nil error, distinct from configuration and
// transport failures which surface as coded errors.
//
// Each dispatch is a fresh invocation. Credentials are resolved from
// scratch, no state survives between calls, and a failure at any stage
// terminates the invocation with no retry.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/agnivade/levenshtein"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
	"github.com/kubeorbit/cluster-agent/pkg/introspect"
	"github.com/kubeorbit/cluster-agent/pkg/kube"
	"github.com/kubeorbit/cluster-agent/pkg/kubeconfig"
	"github.com/kubeorbit/cluster-agent/pkg/registration"
)

// Registrar ships cluster facts to the onboarding backend.
type Registrar interface {
	Register(ctx context.Context, clusterName string, facts introspect.ClusterFacts, ov registration.Overrides) error
}

// Dispatcher routes events to the agent's components. The function fields
// exist for test injection; New wires production implementations.
type Dispatcher struct {
	Config    *config.AgentConfig
	Store     *kubeconfig.Store
	Registrar Registrar

	Resolve      func(kube.ClusterAccess) (*rest.Config, kube.Mode, error)
	NewClientset func(*rest.Config) (kubernetes.Interface, error)

	now func() time.Time
}

// New builds a dispatcher with production wiring for the given configuration.
func New(cfg *config.AgentConfig) *Dispatcher {
	return &Dispatcher{
		Config:       cfg,
		Store:        kubeconfig.NewStore(cfg.KubeconfigDir),
		Registrar:    registration.New(cfg),
		Resolve:      kube.Resolve,
		NewClientset: kube.NewClientset,
		now:          time.Now,
	}
}

// Dispatch parses the event and runs the matching operation, returning a
// normalized string or JSON result. Validation failures come back as the
// result message with a nil error.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (string, error) {
	op, perr := requiredString(event, keyOperation)
	if perr != nil {
		operationsTotal.WithLabelValues("none", "invalid_input").Inc()
		return perr.Error(), nil
	}

	var result string
	var parseFailure *parseError
	var err error

	switch op {
	case OpOnboard:
		result, parseFailure, err = d.onboard(event)
	case OpDelete:
		result, parseFailure, err = d.delete(event)
	case OpGetNamespaces:
		result, parseFailure, err = d.getNamespaces(ctx, event)
	case OpRegister:
		result, parseFailure, err = d.register(ctx, event)
	default:
		// Fixed label: the raw operation string is caller-controlled and
		// would blow up metric cardinality.
		operationsTotal.WithLabelValues("unknown", "invalid_input").Inc()
		return unknownOperationMessage(op), nil
	}

	switch {
	case parseFailure != nil:
		operationsTotal.WithLabelValues(op, "invalid_input").Inc()
		return parseFailure.Error(), nil
	case err != nil:
		operationsTotal.WithLabelValues(op, "error").Inc()
		return result, err
	default:
		operationsTotal.WithLabelValues(op, "success").Inc()
		return result, nil
	}
}

func (d *Dispatcher) onboard(event Event) (string, *parseError, error) {
	req, perr := parseOnboard(event)
	if perr != nil {
		return "", perr, nil
	}

	path, err := d.Store.Write(req.Params())
	if err != nil {
		return "", nil, fmt.Errorf("onboard cluster %q: %w", req.ClusterName, err)
	}

	slog.Info("cluster onboarded",
		slog.String("cluster", req.ClusterName),
		slog.String("path", path),
	)

	return fmt.Sprintf("cluster %q onboarded, kubeconfig written to %s", req.ClusterName, path), nil, nil
}

func (d *Dispatcher) delete(event Event) (string, *parseError, error) {
	req, perr := parseDelete(event)
	if perr != nil {
		return "", perr, nil
	}

	if err := d.Store.Delete(req.ClusterName); err != nil {
		return "", nil, fmt.Errorf("delete cluster %q: %w", req.ClusterName, err)
	}

	slog.Info("cluster kubeconfig removed", slog.String("cluster", req.ClusterName))

	return fmt.Sprintf("kubeconfig for cluster %q removed", req.ClusterName), nil, nil
}

// namespaceListResponse is the JSON result of the get-namespaces operation.
type namespaceListResponse struct {
	Namespaces  []introspect.NamespaceRecord `json:"namespaces"`
	TotalCount  int                          `json:"total_count"`
	ClusterInfo listingClusterInfo           `json:"cluster_info"`
	Timestamp   string                       `json:"timestamp"`
}

type listingClusterInfo struct {
	ConfigType     string `json:"config_type"`
	AgentID        string `json:"agent_id"`
	ClusterName    string `json:"cluster_name"`
	IncludeDetails bool   `json:"include_details"`
}

// namespaceListError is the JSON error shape of the get-namespaces operation.
type namespaceListError struct {
	Error      bool                         `json:"error"`
	Message    string                       `json:"message"`
	Namespaces []introspect.NamespaceRecord `json:"namespaces"`
	TotalCount int                          `json:"total_count"`
}

func (d *Dispatcher) getNamespaces(ctx context.Context, event Event) (string, *parseError, error) {
	req, perr := parseGetNamespaces(event)
	if perr != nil {
		return "", perr, nil
	}

	records, mode, err := d.listNamespaces(ctx, req)
	if err != nil {
		body, merr := json.Marshal(namespaceListError{
			Error:      true,
			Message:    err.Error(),
			Namespaces: []introspect.NamespaceRecord{},
		})
		if merr != nil {
			return "", nil, err
		}
		return string(body), nil, err
	}

	resp := namespaceListResponse{
		Namespaces: records,
		TotalCount: len(records),
		ClusterInfo: listingClusterInfo{
			ConfigType:     string(mode),
			AgentID:        d.Config.AgentID,
			ClusterName:    d.Config.ResolveClusterName(req.ClusterName),
			IncludeDetails: req.IncludeDetails,
		},
		Timestamp: strconv.FormatInt(d.timeNow().Unix(), 10),
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return "", nil, fmt.Errorf("marshal namespace listing: %w", err)
	}
	return string(body), nil, nil
}

func (d *Dispatcher) timeNow() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

func (d *Dispatcher) listNamespaces(ctx context.Context, req GetNamespacesRequest) ([]introspect.NamespaceRecord, kube.Mode, error) {
	restCfg, mode, err := d.Resolve(req.Access)
	if err != nil {
		return nil, "", err
	}

	client, err := d.NewClientset(restCfg)
	if err != nil {
		return nil, "", agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "build cluster client")
	}

	records, err := introspect.New(client).ListNamespaces(ctx, req.IncludeDetails)
	if err != nil {
		return nil, "", err
	}
	return records, mode, nil
}

func (d *Dispatcher) register(ctx context.Context, event Event) (string, *parseError, error) {
	req, perr := parseRegister(event)
	if perr != nil {
		return "", perr, nil
	}

	clusterName := d.Config.ResolveClusterName(req.ClusterName)

	facts, err := d.describe(ctx, req.Access)
	if err != nil {
		return "", nil, err
	}

	ov := registration.Overrides{
		ContextName:  req.ContextName,
		ProviderName: req.ProviderName,
		Tags:         req.Tags,
		UseSecureTLS: req.UseSecureTLS,
	}

	if err := d.Registrar.Register(ctx, clusterName, facts, ov); err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("cluster %q registered with backend", clusterName), nil, nil
}

// describe resolves credentials and gathers cluster facts. The development
// fallback applies only when no credential context of any kind exists, so
// the agent remains exercisable outside a cluster. Malformed caller-supplied
// TLS material and client construction failures surface to the caller.
func (d *Dispatcher) describe(ctx context.Context, access kube.ClusterAccess) (introspect.ClusterFacts, error) {
	restCfg, _, err := d.Resolve(access)
	if err != nil {
		if agenterrors.HasCode(err, agenterrors.ErrCodeConfig) {
			slog.Warn("no credential context, using development fallback", slog.String("error", err.Error()))
			return introspect.DevelopmentFacts(), nil
		}
		return introspect.ClusterFacts{}, err
	}

	client, err := d.NewClientset(restCfg)
	if err != nil {
		return introspect.ClusterFacts{}, agenterrors.Wrap(err, agenterrors.ErrCodeTransport, "build cluster client")
	}

	return introspect.New(client).DescribeCluster(ctx), nil
}

// unknownOperationMessage names the valid operations and suggests the
// closest one when the caller's spelling is near a known name.
func unknownOperationMessage(op string) string {
	best := ""
	bestDistance := -1
	for _, candidate := range operations {
		d := levenshtein.ComputeDistance(op, candidate)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = candidate, d
		}
	}

	if bestDistance >= 0 && bestDistance <= len(best)/2 {
		return fmt.Sprintf("unknown operation %q, did you mean %q?", op, best)
	}
	return fmt.Sprintf("unknown operation %q, supported operations: onboard, delete, get-namespaces, register", op)
}
