package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kubeorbit/cluster-agent/pkg/config"
	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
	"github.com/kubeorbit/cluster-agent/pkg/serializer"
)

// formatFlag is shared by the commands that render structured output.
var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"t"},
	Value:   "json",
	Usage:   "output format (json, yaml)",
}

// parseOutputFormat extracts and validates the output format from CLI flags.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q, valid formats are: yaml, json", outFormat)
	}
	return outFormat, nil
}

// runEvent routes an event through the dispatcher and renders the result.
// Plain messages go to stdout verbatim; JSON results are re-encoded in the
// requested format.
func runEvent(ctx context.Context, cfg *config.AgentConfig, event dispatcher.Event, format serializer.Format) error {
	result, err := dispatcher.New(cfg).Dispatch(ctx, event)
	if err != nil {
		return err
	}
	return printResult(result, format)
}

func printResult(result string, format serializer.Format) error {
	if strings.HasPrefix(strings.TrimSpace(result), "{") {
		var doc map[string]any
		if uerr := json.Unmarshal([]byte(result), &doc); uerr == nil {
			return serializer.NewStdoutWriter(format).Serialize(doc)
		}
	}
	_, err := fmt.Println(result)
	return err
}
