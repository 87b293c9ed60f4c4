package exporter

import (
	"context"
	"fmt"

	"github.com/host-exporters/pkg/frontend"
	"github.com/host-exporters/pkg/registers"
)

// startAgent 注册并初始化采集器；agent 每次 Collect 都新建注册器重新采集
func startAgent(ctx context.Context, name string, modules []registers.Module) (frontend.Collector, ShutdownFunc, error) {
	agent := registers.NewAgent(name)
	if _, err := registers.RegisterCollectors(agent, modules); err != nil {
		return nil, nil, err
	}
	if err := agent.Start(ctx); err != nil {
		_ = agent.Shutdown(ctx)
		return nil, nil, fmt.Errorf("start collectors: %w", err)
	}
	return agent, agent.Shutdown, nil
}
