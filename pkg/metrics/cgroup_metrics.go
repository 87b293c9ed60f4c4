package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CgroupMetrics cgroup-exporter 的指标，groupname 为相对 cgroup 根的路径（根为空串）
type CgroupMetrics struct {
	// CPUUsage type: user/system/total，单位秒
	CPUUsage *prometheus.CounterVec
	// MemoryUsage type: total/swap/kmem.total/memsw.total 以及 memory.stat 的各个字段
	MemoryUsage *prometheus.GaugeVec
	// MemoryFailures type: memory/kmem/memsw
	MemoryFailures *prometheus.CounterVec
	Pids           *prometheus.GaugeVec
	// PressureRatio window: 10/60/300
	PressureRatio     *prometheus.GaugeVec
	PressureStallTime *prometheus.CounterVec
}

// NewCgroupMetrics 创建并注册 cgroup 指标
func (m *MetricFactory) NewCgroupMetrics() *CgroupMetrics {
	return &CgroupMetrics{
		CPUUsage:          m.counterVec("cgroup_cpu_usage", "CPU usage in seconds", "groupname", "type"),
		MemoryUsage:       m.gaugeVec("cgroup_memory_usage", "Memory usage in bytes", "groupname", "type"),
		MemoryFailures:    m.counterVec("cgroup_memory_failures", "Memory limit failures", "groupname", "type"),
		Pids:              m.gaugeVec("cgroup_pids", "Process/Thread count", "groupname"),
		PressureRatio:     m.gaugeVec("cgroup_pressure_ratio", "Pressure stall ratio", "groupname", "resource", "type", "window"),
		PressureStallTime: m.counterVec("cgroup_pressure_stall_time", "Pressure stall time", "groupname", "resource", "type"),
	}
}
