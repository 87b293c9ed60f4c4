package metrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Registers  接口通过接口隔离了 Prometheus 的默认实现，使后续可替换其它实现（例如自定义的组合器），适合单测 mock。 避免业务依赖 Prometheus 具体实现。
type Registers interface {
	prometheus.Registerer                          // 嵌入 Prometheus 官方注册器接口
	Register(collector prometheus.Collector) error //自定义扩展方法
}

// promRegistry Prometheus 实现，内部包裹了官方的 *prometheus.Registry
type promRegistry struct {
	registry *prometheus.Registry
}

// NewPromRegistry 创建 Prometheus 指标注册器
func NewPromRegistry(registry *prometheus.Registry) Registers {
	return &promRegistry{registry: registry}
}

// MustRegister 实现 prometheus.Registerer
func (p *promRegistry) MustRegister(collectors ...prometheus.Collector) {
	var err error
	for _, c := range collectors {
		if err = p.registry.Register(c); err != nil {
			panic(err)
		}
	}
}

// Unregister 实现 prometheus.Registerer
func (p *promRegistry) Unregister(collector prometheus.Collector) bool {
	return p.registry.Unregister(collector)
}

// Register 实现自定义 Registry 接口
func (p *promRegistry) Register(collector prometheus.Collector) error {
	return p.registry.Register(collector)
}

// Render 把注册器里的全部指标编码成 Prometheus 文本格式。
// Gather 的结果按指标名、标签排序，同样的数据总是得到同样的字节。
func Render(g prometheus.Gatherer) ([]byte, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if err := writeFamily(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writeFamily 没有任何样本的指标族不输出
func writeFamily(buf *bytes.Buffer, mf *dto.MetricFamily) error {
	if len(mf.GetMetric()) == 0 {
		return nil
	}
	if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
		return fmt.Errorf("encode %s: %w", mf.GetName(), err)
	}
	return nil
}
