package cli

import (
	"github.com/urfave/cli/v3"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/registration"
)

// New builds the root command. The configuration is read once by the caller
// and shared by every subcommand.
func New(cfg *config.AgentConfig) *cli.Command {
	return &cli.Command{
		Name:                  "cluster-agent",
		Usage:                 "Onboard, introspect, and register Kubernetes clusters",
		Version:               registration.AgentVersion,
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			onboardCmd(cfg),
			deleteCmd(cfg),
			namespacesCmd(cfg),
			registerCmd(cfg),
			serveCmd(cfg),
		},
	}
}
