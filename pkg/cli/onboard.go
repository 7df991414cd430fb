package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
	"github.com/kubeorbit/cluster-agent/pkg/serializer"
)

func onboardCmd(cfg *config.AgentConfig) *cli.Command {
	return &cli.Command{
		Name:                  "onboard",
		EnableShellCompletion: true,
		Usage:                 "Synthesize and store a kubeconfig for a cluster",
		Description: `Builds a kubeconfig document from the given connection parameters and
writes it under the agent's kubeconfig directory as <cluster>.kubeconfig.

With --secure-tls the certificate authority data from --ca-data is embedded;
without it the kubeconfig skips TLS verification against the cluster.

# Examples

Onboard with TLS verification:
  cluster-agent onboard --cluster prod --kube-context prod-context \
    --server-url https://10.0.0.1:6443 --token $TOKEN \
    --secure-tls --ca-data $(base64 -w0 ca.crt)

Onboard a development cluster without verification:
  cluster-agent onboard --cluster dev --kube-context dev-context \
    --server-url https://127.0.0.1:6443 --token $TOKEN`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "cluster",
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "Cluster name, also the kubeconfig file basename",
			},
			&cli.StringFlag{
				Name:     "kube-context",
				Required: true,
				Usage:    "Context name recorded in the kubeconfig",
			},
			&cli.StringFlag{
				Name:     "server-url",
				Required: true,
				Usage:    "Kubernetes API server URL",
			},
			&cli.StringFlag{
				Name:     "token",
				Required: true,
				Usage:    "Bearer token for the cluster",
			},
			&cli.BoolFlag{
				Name:  "secure-tls",
				Usage: "Verify the API server certificate using --ca-data",
			},
			&cli.StringFlag{
				Name:  "ca-data",
				Usage: "Base64-encoded certificate authority data",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			event := dispatcher.Event{
				"operation":      dispatcher.OpOnboard,
				"cluster_name":   cmd.String("cluster"),
				"context_name":   cmd.String("kube-context"),
				"server_url":     cmd.String("server-url"),
				"token":          cmd.String("token"),
				"use_secure_tls": cmd.Bool("secure-tls"),
			}
			if caData := cmd.String("ca-data"); caData != "" {
				event["ca_data"] = caData
			}
			return runEvent(ctx, cfg, event, serializer.FormatJSON)
		},
	}
}

func deleteCmd(cfg *config.AgentConfig) *cli.Command {
	return &cli.Command{
		Name:                  "delete",
		EnableShellCompletion: true,
		Usage:                 "Remove a cluster's stored kubeconfig",
		Description: `Removes the kubeconfig for the named cluster from the agent's kubeconfig
directory. Deleting a cluster that was never onboarded succeeds without
complaint.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "cluster",
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "Cluster name to remove",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			event := dispatcher.Event{
				"operation":    dispatcher.OpDelete,
				"cluster_name": cmd.String("cluster"),
			}
			return runEvent(ctx, cfg, event, serializer.FormatJSON)
		},
	}
}
