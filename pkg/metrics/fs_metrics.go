package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FilesystemMetrics fs-exporter 的指标，标签均为 device/fstype/mountpoint
type FilesystemMetrics struct {
	AvailBytes *prometheus.GaugeVec
	Files      *prometheus.GaugeVec
	FilesFree  *prometheus.GaugeVec
	FreeBytes  *prometheus.GaugeVec
	SizeBytes  *prometheus.GaugeVec
}

// NewFilesystemMetrics 创建并注册文件系统指标
func (m *MetricFactory) NewFilesystemMetrics() *FilesystemMetrics {
	labels := []string{"device", "fstype", "mountpoint"}
	return &FilesystemMetrics{
		AvailBytes: m.gaugeVec("node_filesystem_avail_bytes", "Filesystem space available to non-root users in bytes.", labels...),
		Files:      m.gaugeVec("node_filesystem_files", "Filesystem total file nodes.", labels...),
		FilesFree:  m.gaugeVec("node_filesystem_files_free", "Filesystem total free file nodes.", labels...),
		FreeBytes:  m.gaugeVec("node_filesystem_free_bytes", "Filesystem free space in bytes.", labels...),
		SizeBytes:  m.gaugeVec("node_filesystem_size_bytes", "Filesystem size in bytes.", labels...),
	}
}
