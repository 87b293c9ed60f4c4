// Package exporter 所有 exporter 二进制共用的 cobra 命令：
// 参数与环境变量解析、日志初始化、构建采集器，然后交给 frontend 运行。
package exporter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/signal"
	"github.com/host-exporters/pkg/util"
)

// shutdownTimeout 退出时关闭采集器的最长等待时间
const shutdownTimeout = 5 * time.Second

// ShutdownFunc 释放采集器占用的资源（后台协程、连接）
type ShutdownFunc func(ctx context.Context) error

// BuildFunc 根据配置和位置参数构建采集器
type BuildFunc func(ctx context.Context, cmd *cobra.Command, cfg *config.Config, args []string) (frontend.Collector, ShutdownFunc, error)

// Exporter 描述一个 exporter 命令
type Exporter struct {
	// Name 短名称，如 "kernel"；命令名为 "<Name>-exporter"
	Name  string
	Short string
	Args  cobra.PositionalArgs
	// Flags 注册该 exporter 专用的参数
	Flags func(f *pflag.FlagSet)
	// RequireListeners 只能由 socket activation 启动（没有单次 stdout 模式）
	RequireListeners bool
	Build            BuildFunc
}

// CommandName 二进制/命令名
func (e Exporter) CommandName() string {
	return e.Name + "-exporter"
}

var defaultCfg = config.NewDefaultConfig()

// NewCommand 创建 exporter 的根命令
func NewCommand(e Exporter) *cobra.Command {
	args := e.Args
	if args == nil {
		args = cobra.NoArgs
	}
	cmd := &cobra.Command{
		Use:   e.CommandName(),
		Short: e.Short,
		Args:  args,
		// 错误由 Execute 统一输出
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 参数错误时 cobra 打印用法，运行期错误不再打印
			cmd.SilenceUsage = true
			return run(cmd, e, args)
		},
	}

	initServerFlags(cmd)
	initLogFlags(cmd)
	if e.Flags != nil {
		e.Flags(cmd.Flags())
	}
	return cmd
}

// Execute 执行命令，出错时输出到 stderr 并以 1 退出
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, e Exporter, args []string) error {
	cfg, err := config.LoadConfigWithCli(cmd)
	if err != nil {
		return err
	}

	if err := logger.Init(&cfg.Log, e.CommandName()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.SetDefaultExporter(e.Name)

	if cfg.Banner {
		if err := util.PrintBanner(cmd.ErrOrStderr(), e.CommandName(), cfg.BannerColor); err != nil {
			logger.Warn("print banner", zap.Error(err))
		}
	}
	logger.Debug("configuration loaded",
		zap.String("procfs", cfg.Path.Procfs), zap.String("sysfs", cfg.Path.Sysfs),
		zap.Duration("read-timeout", cfg.Server.ReadTimeout),
		zap.Duration("write-timeout", cfg.Server.WriteTimeout))

	ctx, cancel := signal.WithShutdown(cmd.Context())
	defer cancel()

	collector, shutdown, err := e.Build(ctx, cmd, cfg, args)
	if err != nil {
		return err
	}
	if shutdown != nil {
		defer func() { _ = signal.Shutdown(shutdownTimeout, shutdown) }()
	}

	fe := frontend.New(frontend.SystemdListeners{UnsetEnv: true}, frontend.SystemdNotifier{}, frontend.Options{
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		RequireListeners: e.RequireListeners,
		Stdout:           cmd.OutOrStdout(),
	})
	return fe.Run(ctx, collector)
}

// configPath 可选的配置文件参数，未给出时使用默认路径；第二个返回值表示是否显式指定
func configPath(name string, args []string) (string, bool) {
	if len(args) > 0 {
		return args[0], true
	}
	return config.DefaultConfigFile(name), false
}
