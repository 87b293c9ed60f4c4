package exporter

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/registers"
)

// Filesystem 已挂载文件系统的容量
func Filesystem() Exporter {
	return Exporter{
		Name:  "fs",
		Short: "Export size and usage of mounted filesystems",
		Args:  cobra.NoArgs,
		Build: func(ctx context.Context, _ *cobra.Command, _ *config.Config, _ []string) (frontend.Collector, ShutdownFunc, error) {
			return startAgent(ctx, "fs", []registers.Module{{
				Enabled: true,
				Name:    "filesystem",
				NewFunc: func() registers.Collector { return collector.NewFilesystemCollector() },
			}})
		},
	}
}
