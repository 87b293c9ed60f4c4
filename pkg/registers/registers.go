package registers

import (
	"errors"

	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
)

// ErrNoCollectors 所有模块都被关闭
var ErrNoCollectors = errors.New("no collectors enabled")

type Module struct {
	Enabled bool
	Name    string
	NewFunc func() Collector
}

// RegisterCollectors  采集器注册统一入口
// 新增采集器只需在 modules 列表添加一条，不必写重复的 if/else。
// 返回所有已注册采集器
func RegisterCollectors(agent Agent, modules []Module) ([]Collector, error) {
	var registered []Collector
	for _, m := range modules {
		if !m.Enabled {
			logger.Debug("collector disabled", zap.String("name", m.Name))
			continue
		}
		c := m.NewFunc()
		agent.Register(c)
		registered = append(registered, c)
		logger.Debug("registered collector", zap.String("name", m.Name))
	}
	if len(registered) == 0 {
		return nil, ErrNoCollectors
	}

	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name())
	}
	logger.Debug("all enabled collectors registered", zap.Strings("enabled_collectors", names))

	return registered, nil
}
