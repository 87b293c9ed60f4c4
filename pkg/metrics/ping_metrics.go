package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PingMetrics ping-exporter 的计数器，标签 address
type PingMetrics struct {
	Requests *prometheus.CounterVec
	Replies  *prometheus.CounterVec
	Wait     *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Timeouts *prometheus.CounterVec
}

// NewPingMetrics 创建并注册 ICMP 探测指标
func (f *MetricFactory) NewPingMetrics() *PingMetrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ping",
			Name:      name,
			Help:      help,
		}, []string{"address"})
	}
	return &PingMetrics{
		Requests: counter("requests", `Number of ICMP "echo request" messages sent`),
		Replies:  counter("replies", `Number of ICMP "echo reply" messages received`),
		Wait:     counter("wait", `Total wait time for ICMP "echo reply" in seconds`),
		Errors:   counter("errors", `Number of errors received instead of ICMP "echo reply"`),
		Timeouts: counter("timeouts", `Number of timeouts waiting for ICMP "echo reply"`),
	}
}
