package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BgpPeerMetrics bgp-exporter 的邻居指标，命名沿用 obgpd_exporter
type BgpPeerMetrics struct {
	Time               *prometheus.GaugeVec
	State              *prometheus.GaugeVec
	PrefixesAdvertised *prometheus.GaugeVec
	PrefixesReceived   *prometheus.GaugeVec
	MessagesSent       *prometheus.GaugeVec
	MessagesReceived   *prometheus.GaugeVec
	UpdatesSent        *prometheus.GaugeVec
	UpdatesReceived    *prometheus.GaugeVec
}

var bgpPeerLabels = []string{"remote_as", "description", "remote_addr"}

// -------------------------- BGP 邻居指标 --------------------------
func (f *MetricFactory) NewBgpPeerMetrics() *BgpPeerMetrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return promauto.With(f.reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "obgpd",
			Subsystem: "peer",
			Name:      name,
			Help:      help,
		}, bgpPeerLabels)
	}
	return &BgpPeerMetrics{
		Time:               gauge("time", "Seconds since last neighbor state change"),
		State:              gauge("state", "State of a neighbor (-1 = Unknown, 0 = Idle, 1 = Connect, 2 = Active, 3 = OpenSent, 4 = OpenConfirm, 5 = Established)."),
		PrefixesAdvertised: gauge("prefixes_advertised", "Number of prefixes advertised to a neighbor"),
		PrefixesReceived:   gauge("prefixes_received", "Number of prefixes received from a neighbor"),
		MessagesSent:       gauge("messages_sent", "Number of BGP messages sent to a neighbor"),
		MessagesReceived:   gauge("messages_received", "Number of BGP messages received from a neighbor"),
		UpdatesSent:        gauge("updates_sent", "Number of BGP updates/withdraw sent to a neighbor"),
		UpdatesReceived:    gauge("updates_received", "Number of BGP updates/withdraw received from a neighbor"),
	}
}
