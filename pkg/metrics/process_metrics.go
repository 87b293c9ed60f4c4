package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const processNamespace = "namedprocess_namegroup"

// ProcessMetrics process-exporter 的指标，按进程组（groupname）聚合
type ProcessMetrics struct {
	ContextSwitches *prometheus.CounterVec
	CPUSeconds      *prometheus.CounterVec
	MemoryBytes     *prometheus.GaugeVec
	MinorFaults     *prometheus.CounterVec
	MajorFaults     *prometheus.CounterVec
	NumProcs        *prometheus.GaugeVec
	NumThreads      *prometheus.GaugeVec
}

// NewProcessMetrics 创建并注册进程组指标
func (m *MetricFactory) NewProcessMetrics() *ProcessMetrics {
	name := func(s string) string { return prometheus.BuildFQName(processNamespace, "", s) }
	return &ProcessMetrics{
		ContextSwitches: m.counterVec(name("context_switches_total"), "Context switches", "groupname", "ctxswitchtype"),
		CPUSeconds:      m.counterVec(name("cpu_seconds_total"), "Cpu user usage in seconds", "groupname", "mode"),
		MemoryBytes:     m.gaugeVec(name("memory_bytes"), "number of bytes of memory in use", "groupname", "memtype"),
		MinorFaults:     m.counterVec(name("minor_page_faults_total"), "Minor page faults", "groupname"),
		MajorFaults:     m.counterVec(name("major_page_faults_total"), "Major page faults", "groupname"),
		NumProcs:        m.gaugeVec(name("num_procs"), "number of processes in this group", "groupname"),
		NumThreads:      m.gaugeVec(name("num_threads"), "Number of threads", "groupname"),
	}
}
