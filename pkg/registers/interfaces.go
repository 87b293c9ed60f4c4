package registers

import (
	"context"

	"github.com/host-exporters/pkg/metrics"
)

// Agent 顶层采集器接口（封装所有采集器的生命周期管理）
// 后续扩展采集器仅需实现Collector接口，通过Agent注册即可
type Agent interface {
	Register(collector Collector)                // 注册采集器
	Start(ctx context.Context) error             // 初始化所有采集器
	Collect(ctx context.Context) ([]byte, error) // 采集一次并渲染成文本
	Shutdown(ctx context.Context) error          // 优雅停止
}

// Collector 采集器核心接口（所有采集器必须实现）
type Collector interface {
	Name() string                                                // 采集器名称（唯一标识）
	Init() error                                                 // 初始化（预检查资源）
	Collect(ctx context.Context, f *metrics.MetricFactory) error // 读取数据源并写入本次采集的指标
	Close() error                                                // 关闭（释放资源）
}
