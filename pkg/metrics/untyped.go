package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// UntypedVec 带标签的 untyped 指标；client_golang 只提供无标签的 UntypedFunc
type UntypedVec struct {
	desc *prometheus.Desc

	mu      sync.Mutex
	samples map[string]untypedSample
}

type untypedSample struct {
	labels []string
	value  float64
}

// NewUntypedVec 创建 untyped 指标
func NewUntypedVec(name, help string, labels []string) *UntypedVec {
	return &UntypedVec{
		desc:    prometheus.NewDesc(name, help, labels, nil),
		samples: make(map[string]untypedSample),
	}
}

// Set 设置一组标签对应的值，标签数量必须与定义一致
func (v *UntypedVec) Set(value float64, labelValues ...string) {
	key := strings.Join(labelValues, "\xff")
	v.mu.Lock()
	v.samples[key] = untypedSample{labels: append([]string(nil), labelValues...), value: value}
	v.mu.Unlock()
}

func (v *UntypedVec) Describe(ch chan<- *prometheus.Desc) {
	ch <- v.desc
}

func (v *UntypedVec) Collect(ch chan<- prometheus.Metric) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.samples {
		ch <- prometheus.MustNewConstMetric(v.desc, prometheus.UntypedValue, s.value, s.labels...)
	}
}

func (m *MetricFactory) untypedVec(name, help string, labels ...string) *UntypedVec {
	u := NewUntypedVec(name, help, labels)
	m.reg.MustRegister(u)
	return u
}
