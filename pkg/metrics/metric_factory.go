package metrics

import "github.com/prometheus/client_golang/prometheus"

// MetricFactory 指标工厂，用于统一创建指标（counter/gauge/untyped）。
// 每次采集都基于一个新的注册器创建，指标只反映本次读取到的数据。
type MetricFactory struct {
	reg Registers
}

// NewMetricFactory 创建指标工厂
func NewMetricFactory(reg Registers) *MetricFactory {
	return &MetricFactory{reg: reg}
}

// NewScrape 创建一次采集用的注册器和工厂
func NewScrape() (*prometheus.Registry, *MetricFactory) {
	registry := prometheus.NewRegistry()
	return registry, NewMetricFactory(NewPromRegistry(registry))
}

func (m *MetricFactory) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	m.reg.MustRegister(g)
	return g
}

func (m *MetricFactory) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	m.reg.MustRegister(c)
	return c
}
