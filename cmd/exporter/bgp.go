package exporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/registers"
)

// Bgp OpenBGPD 邻居状态
func Bgp() Exporter {
	return Exporter{
		Name:  "bgp",
		Short: "Export OpenBGPD neighbor state from bgpctl",
		Args:  cobra.NoArgs,
		Flags: func(f *pflag.FlagSet) {
			f.String("bgp.command", shellquote.Join(collector.DefaultBgpCommand...),
				"-> Command printing neighbors as JSON, shell quoted (邻居查询命令)")
		},
		Build: buildBgp,
	}
}

func buildBgp(ctx context.Context, cmd *cobra.Command, _ *config.Config, _ []string) (frontend.Collector, ShutdownFunc, error) {
	line, err := cmd.Flags().GetString("bgp.command")
	if err != nil {
		return nil, nil, err
	}
	argv, err := parseCommand(line)
	if err != nil {
		return nil, nil, err
	}
	return startAgent(ctx, "bgp", []registers.Module{{
		Enabled: true,
		Name:    "bgp",
		NewFunc: func() registers.Collector { return collector.NewBgpCollector(argv) },
	}})
}

// parseCommand 按 shell 规则拆分命令行（不经过 shell 执行）
func parseCommand(line string) ([]string, error) {
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("bgp.command: %w", err)
	}
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("bgp.command: empty command")
	}
	return argv, nil
}
