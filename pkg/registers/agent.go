package registers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/metrics"
)

// AgentImpl 实现 registers.Agent 接口，同时满足 frontend.Collector
type AgentImpl struct {
	name       string
	collectors []Collector
	started    bool
	mu         sync.Mutex
}

// NewAgent 创建采集器管理器，name 仅用于日志
func NewAgent(name string) *AgentImpl {
	return &AgentImpl{
		name:       name,
		collectors: make([]Collector, 0),
	}
}

// Register 注册采集器
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// InitAll 依次初始化，遇到第一个错误即返回
func (r *AgentImpl) InitAll() error {
	for _, coll := range r.collectors {
		if err := coll.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", coll.Name(), err)
		}
		logger.Debug("collector initialized successfully", zap.String("name", coll.Name()))
	}
	return nil
}

// Start 初始化所有已注册采集器
func (r *AgentImpl) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if err := r.InitAll(); err != nil {
		return err
	}
	r.started = true
	logger.Debug("collectors started", zap.String("name", r.name),
		zap.Int("registered-collectors-count", len(r.collectors)))
	return nil
}

// Collect 每次都创建新的注册器并让所有采集器重新读取数据源，任一采集器失败则本次采集失败
func (r *AgentImpl) Collect(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry, factory := metrics.NewScrape()
	if err := r.CollectAll(ctx, factory); err != nil {
		return nil, err
	}
	return metrics.Render(registry)
}

// CollectAll 按注册顺序采集
func (r *AgentImpl) CollectAll(ctx context.Context, f *metrics.MetricFactory) error {
	for _, collector := range r.collectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := collector.Collect(ctx, f); err != nil {
			return fmt.Errorf("%s: %w", collector.Name(), err)
		}
	}
	return nil
}

// Shutdown 优雅关闭采集器（释放资源）
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	logger.Debug("shutting down collectors", zap.String("name", r.name))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
	return r.CloseAll()
}

// CloseAll 关闭全部采集器，单个失败不阻断其它采集器，错误合并返回
func (r *AgentImpl) CloseAll() error {
	var errs error
	for _, collector := range r.collectors {
		if err := collector.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", collector.Name()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", collector.Name(), err))
		}
	}
	return errs
}
