package exporter

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/logger"
)

// Multi 合并多个 exporter 的输出
func Multi() Exporter {
	return Exporter{
		Name:  "multi",
		Short: "Concatenate the output of several exporters",
		Args:  cobra.MaximumNArgs(1),
		Flags: func(f *pflag.FlagSet) {
			f.Duration("multi.timeout", 0, "-> Per source timeout, 0 means 30s (单个数据源超时)")
		},
		Build: buildMulti,
	}
}

func buildMulti(_ context.Context, cmd *cobra.Command, _ *config.Config, args []string) (frontend.Collector, ShutdownFunc, error) {
	path, _ := configPath("multi", args)
	multiCfg, err := config.LoadMultiConfig(path)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := cmd.Flags().GetDuration("multi.timeout")
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("multi sources loaded", zap.Strings("sources", multiCfg.Sources))

	c := collector.NewMultiCollector(multiCfg.Sources, timeout)
	return c, func(context.Context) error { return c.Close() }, nil
}
