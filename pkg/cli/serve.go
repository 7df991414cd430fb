package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
	"github.com/kubeorbit/cluster-agent/pkg/server"
)

func serveCmd(cfg *config.AgentConfig) *cli.Command {
	return &cli.Command{
		Name:                  "serve",
		EnableShellCompletion: true,
		Usage:                 "Run the HTTP event server",
		Description: `Starts an HTTP server that accepts event payloads on POST /v1/events and
routes them to the same operations as the subcommands. Also exposes
/health, /ready, and Prometheus metrics on /metrics.

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides the PORT environment variable)",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "Listen address (default: all interfaces)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			srvCfg := server.DefaultConfig()
			if cmd.IsSet("port") {
				srvCfg.Port = int(cmd.Int("port"))
			}
			if cmd.IsSet("address") {
				srvCfg.Address = cmd.String("address")
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(srvCfg, dispatcher.New(cfg)).Run(ctx)
		},
	}
}
