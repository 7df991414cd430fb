package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
)

// accessFlags are the external cluster connection flags shared by the
// namespaces and register commands. Without them the agent falls back to the
// in-cluster service account.
func accessFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "server-url",
			Usage: "Kubernetes API server URL (omit to use the in-cluster context)",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Bearer token for the cluster",
		},
		&cli.BoolFlag{
			Name:  "secure-tls",
			Usage: "Verify the API server certificate",
		},
		&cli.StringFlag{
			Name:  "ca-data",
			Usage: "Base64-encoded certificate authority data",
		},
		&cli.StringFlag{
			Name:  "cert-data",
			Usage: "Base64-encoded client certificate data",
		},
		&cli.StringFlag{
			Name:  "key-data",
			Usage: "Base64-encoded client key data",
		},
	}
}

// applyAccessFlags copies the connection flags that were actually set into
// the event, so absent flags stay absent from the payload.
func applyAccessFlags(cmd *cli.Command, event dispatcher.Event) {
	for flag, key := range map[string]string{
		"server-url": "server_url",
		"token":      "token",
		"ca-data":    "ca_data",
		"cert-data":  "cert_data",
		"key-data":   "key_data",
	} {
		if v := cmd.String(flag); v != "" {
			event[key] = v
		}
	}
	if cmd.IsSet("secure-tls") {
		event["use_secure_tls"] = cmd.Bool("secure-tls")
	}
}

func namespacesCmd(cfg *config.AgentConfig) *cli.Command {
	return &cli.Command{
		Name:                  "namespaces",
		EnableShellCompletion: true,
		Usage:                 "List namespaces from the target cluster",
		Description: `Lists the namespaces visible to the resolved credentials. With --details
each namespace carries resource quotas, pod counts by phase, and service
counts; sub-queries that fail are omitted rather than failing the listing.

# Examples

List from inside the cluster:
  cluster-agent namespaces

List an external cluster with details:
  cluster-agent namespaces --details \
    --server-url https://10.0.0.1:6443 --token $TOKEN`,
		Flags: append(accessFlags(),
			&cli.StringFlag{
				Name:    "cluster",
				Aliases: []string{"c"},
				Usage:   "Cluster name reported in the listing",
			},
			&cli.BoolFlag{
				Name:    "details",
				Aliases: []string{"d"},
				Usage:   "Include quotas, pod counts, and service counts per namespace",
			},
			formatFlag,
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			event := dispatcher.Event{
				"operation": dispatcher.OpGetNamespaces,
			}
			if cluster := cmd.String("cluster"); cluster != "" {
				event["cluster_name"] = cluster
			}
			if cmd.Bool("details") {
				event["include_details"] = true
			}
			applyAccessFlags(cmd, event)

			return runEvent(ctx, cfg, event, outFormat)
		},
	}
}
