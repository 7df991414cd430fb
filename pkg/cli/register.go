package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
	"github.com/kubeorbit/cluster-agent/pkg/serializer"
)

func registerCmd(cfg *config.AgentConfig) *cli.Command {
	return &cli.Command{
		Name:                  "register",
		EnableShellCompletion: true,
		Usage:                 "Introspect the cluster and register it with the backend",
		Description: `Gathers node count, Kubernetes version, and namespace count from the
resolved cluster and posts them to the onboarding backend. Requires
AGENT_ID, API_KEY, and BACKEND_URL in the environment.

When no cluster credentials can be resolved the registration proceeds with
fixed development facts, so the agent can be exercised outside a cluster.

# Examples

Register the surrounding cluster:
  cluster-agent register

Register an external cluster tagged for a team:
  cluster-agent register --server-url https://10.0.0.1:6443 --token $TOKEN \
    --provider eks --tag team=infra --tag env=prod`,
		Flags: append(accessFlags(),
			&cli.StringFlag{
				Name:    "cluster",
				Aliases: []string{"c"},
				Usage:   "Cluster name reported to the backend",
			},
			&cli.StringFlag{
				Name:  "kube-context",
				Usage: "Context name reported to the backend (default: <cluster>-context)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Provider name reported to the backend (default: kubernetes)",
			},
			&cli.StringSliceFlag{
				Name:  "tag",
				Usage: "Tag attached to the registration (can be repeated)",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			event := dispatcher.Event{
				"operation": dispatcher.OpRegister,
			}
			if cluster := cmd.String("cluster"); cluster != "" {
				event["cluster_name"] = cluster
			}
			if kubeContext := cmd.String("kube-context"); kubeContext != "" {
				event["context_name"] = kubeContext
			}
			if provider := cmd.String("provider"); provider != "" {
				event["provider_name"] = provider
			}
			if tags := cmd.StringSlice("tag"); len(tags) > 0 {
				event["tags"] = tags
			}
			applyAccessFlags(cmd, event)

			return runEvent(ctx, cfg, event, serializer.FormatJSON)
		},
	}
}
