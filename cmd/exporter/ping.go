package exporter

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/registers"
)

// Ping 周期性 ICMP 探测；统计在后台累积，因此只支持 socket activation
func Ping() Exporter {
	return Exporter{
		Name:             "ping",
		Short:            "Ping IPv4 hosts periodically and export reply statistics",
		Args:             cobra.MaximumNArgs(1),
		RequireListeners: true,
		Build:            buildPing,
	}
}

func buildPing(ctx context.Context, _ *cobra.Command, _ *config.Config, args []string) (frontend.Collector, ShutdownFunc, error) {
	path, _ := configPath("ping", args)
	pingCfg, err := config.LoadPingConfig(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := collector.NewPingCollector(pingCfg.Addresses, collector.NewICMPPinger())
	if err != nil {
		return nil, nil, err
	}
	return startAgent(ctx, "ping", []registers.Module{{
		Enabled: true,
		Name:    "ping",
		NewFunc: func() registers.Collector { return c },
	}})
}
