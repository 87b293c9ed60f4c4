package exporter

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/registers"
)

// Kernel /proc 下的负载、内存、vmstat 和 PSI
func Kernel() Exporter {
	return Exporter{
		Name:  "kernel",
		Short: "Export load average, memory and vmstat counters of the Linux kernel",
		Args:  cobra.NoArgs,
		Flags: func(f *pflag.FlagSet) {
			f.Bool("collector.loadavg", true, "-> Export /proc/loadavg (负载)")
			f.Bool("collector.meminfo", true, "-> Export /proc/meminfo (内存)")
			f.Bool("collector.vmstat", true, "-> Export /proc/vmstat")
			f.Bool("collector.pressure", true, "-> Export /proc/pressure when available (PSI)")
		},
		Build: buildKernel,
	}
}

func buildKernel(ctx context.Context, cmd *cobra.Command, cfg *config.Config, _ []string) (frontend.Collector, ShutdownFunc, error) {
	f := cmd.Flags()
	enabled := func(name string) bool {
		v, err := f.GetBool("collector." + name)
		return err == nil && v
	}
	proc := cfg.Path.Procfs

	// 新增采集器只需在列表中添加一条
	modules := []registers.Module{
		{
			Enabled: enabled("loadavg"),
			Name:    "loadavg",
			NewFunc: func() registers.Collector { return collector.NewLoadAvgCollector(proc) },
		},
		{
			Enabled: enabled("meminfo"),
			Name:    "meminfo",
			NewFunc: func() registers.Collector { return collector.NewMemInfoCollector(proc) },
		},
		{
			Enabled: enabled("vmstat"),
			Name:    "vmstat",
			NewFunc: func() registers.Collector { return collector.NewVMStatCollector(proc) },
		},
		{
			Enabled: enabled("pressure"),
			Name:    "pressure",
			NewFunc: func() registers.Collector { return collector.NewPressureCollector(proc) },
		},
	}
	return startAgent(ctx, "kernel", modules)
}
