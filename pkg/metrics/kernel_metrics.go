package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewLoadAvg 系统平均负载，标签 period: 1m/5m/15m
func (m *MetricFactory) NewLoadAvg() *prometheus.GaugeVec {
	return m.gaugeVec("loadavg", "Load average.", "period")
}

// NewMemInfo 创建「内核内存信息」指标
// 指标类型：Gauge
// 数据来源：/proc/meminfo，带 kB 后缀的值换算成字节
// 标签说明：
// name: meminfo 中的字段名（如 "MemTotal"、"Active(anon)"）
func (m *MetricFactory) NewMemInfo() *prometheus.GaugeVec {
	return m.gaugeVec("meminfo", "Kernel memory info", "name")
}

// NewVMStat /proc/vmstat 的原始计数，内核不区分类型，因此导出为 untyped
func (m *MetricFactory) NewVMStat() *UntypedVec {
	return m.untypedVec("vmstat", "Kernel virtual memory statistics", "name")
}

// NewPressureRatio 创建「PSI 压力比例」指标
// 指标类型：Gauge，值为内核给出的百分比
// 标签说明：
// resource: cpu/io/memory
// type: some/full
// window: 统计窗口 10s/60s/300s
func (m *MetricFactory) NewPressureRatio() *prometheus.GaugeVec {
	return m.gaugeVec("pressure_ratio", "Pressure stall ratio", "resource", "type", "window")
}

// NewPressureStallTime PSI 累计停顿时间（秒）
func (m *MetricFactory) NewPressureStallTime() *prometheus.CounterVec {
	return m.counterVec("pressure_stall_time", "Pressure stall time", "resource", "type")
}
