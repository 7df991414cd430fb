package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kubeorbit/cluster-agent/pkg/cli"
	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/logging"
	"github.com/kubeorbit/cluster-agent/pkg/registration"
)

func main() {
	cfg := config.FromEnv()
	logging.SetDefaultStructuredLogger("cluster-agent", registration.AgentVersion, cfg.LogLevel)

	if err := cli.New(cfg).Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
