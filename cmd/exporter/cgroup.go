package exporter

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/collector"
	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/registers"
)

// Cgroup cgroup 层级的资源用量，可选一个配置文件参数
func Cgroup() Exporter {
	return Exporter{
		Name:  "cgroup",
		Short: "Export CPU, memory, pids and pressure of control groups",
		Args:  cobra.MaximumNArgs(1),
		Build: buildCgroup,
	}
}

func buildCgroup(ctx context.Context, _ *cobra.Command, cfg *config.Config, args []string) (frontend.Collector, ShutdownFunc, error) {
	path, explicit := configPath("cgroup", args)
	cgroupCfg, err := config.LoadCgroupConfig(path, explicit)
	if err != nil {
		return nil, nil, err
	}
	root := filepath.Join(cfg.Path.Sysfs, "fs", "cgroup")
	logger.Debug("cgroup configuration loaded", zap.String("root", root),
		zap.Strings("opaque_paths", cgroupCfg.OpaquePaths), zap.Strings("ignore_names", cgroupCfg.IgnoreNames))

	return startAgent(ctx, "cgroup", []registers.Module{{
		Enabled: true,
		Name:    "cgroup",
		NewFunc: func() registers.Collector { return collector.NewCgroupCollector(root, cgroupCfg) },
	}})
}
