package exporter

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/registers"
)

// Process 按规则分组的进程资源用量，必须给出配置文件
func Process() Exporter {
	return Exporter{
		Name:  "process",
		Short: "Export resource usage of named process groups",
		Args:  cobra.ExactArgs(1),
		Build: buildProcess,
	}
}

func buildProcess(ctx context.Context, _ *cobra.Command, cfg *config.Config, args []string) (frontend.Collector, ShutdownFunc, error) {
	processCfg, err := config.LoadProcessConfig(args[0])
	if err != nil {
		return nil, nil, err
	}
	c, err := collector.NewProcessCollector(cfg.Path.Procfs, processCfg)
	if err != nil {
		return nil, nil, err
	}
	return startAgent(ctx, "process", []registers.Module{{
		Enabled: true,
		Name:    "process",
		NewFunc: func() registers.Collector { return c },
	}})
}
