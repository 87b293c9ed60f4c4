package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/metrics"
)

// pressureResources /proc/pressure 与 cgroup 共用的资源名
var pressureResources = []string{"cpu", "io", "memory"}

// LoadAvgCollector 系统平均负载（/proc/loadavg）
type LoadAvgCollector struct {
	name     string
	procPath string
	fs       procfs.FS
}

// NewLoadAvgCollector 创建负载采集器
func NewLoadAvgCollector(procPath string) *LoadAvgCollector {
	return &LoadAvgCollector{name: "loadavg", procPath: procPath}
}

func (c *LoadAvgCollector) Name() string { return c.name }

func (c *LoadAvgCollector) Init() error {
	fs, err := procfs.NewFS(c.procPath)
	if err != nil {
		return fmt.Errorf("open procfs %s: %w", c.procPath, err)
	}
	c.fs = fs
	return nil
}

func (c *LoadAvgCollector) Collect(_ context.Context, f *metrics.MetricFactory) error {
	avg, err := c.fs.LoadAvg()
	if err != nil {
		return fmt.Errorf("read loadavg: %w", err)
	}
	load := f.NewLoadAvg()
	load.WithLabelValues("1m").Set(avg.Load1)
	load.WithLabelValues("5m").Set(avg.Load5)
	load.WithLabelValues("15m").Set(avg.Load15)
	return nil
}

func (c *LoadAvgCollector) Close() error { return nil }

// MemInfoCollector 导出 /proc/meminfo 的全部字段。
// 不使用 procfs.Meminfo 的固定结构体，新内核增加的字段也会原样导出。
type MemInfoCollector struct {
	name string
	path string
}

// NewMemInfoCollector 创建 meminfo 采集器
func NewMemInfoCollector(procPath string) *MemInfoCollector {
	return &MemInfoCollector{name: "meminfo", path: filepath.Join(procPath, "meminfo")}
}

func (c *MemInfoCollector) Name() string { return c.name }

func (c *MemInfoCollector) Init() error { return nil }

func (c *MemInfoCollector) Collect(_ context.Context, f *metrics.MetricFactory) error {
	data, err := readTextFile(c.path, defaultFileLimit)
	if err != nil {
		return err
	}

	gauge := f.NewMemInfo()
	forEachKeyValue(data, ":", func(name, value string) {
		unit := uint64(1)
		if v, ok := strings.CutSuffix(value, " kB"); ok {
			value = v
			unit = 1024
		}
		n, ok := parseLeadingUint(value)
		if !ok {
			logger.Debug("skip meminfo field", zap.String("field", name), zap.String("value", value))
			return
		}
		gauge.WithLabelValues(name).Set(float64(n * unit))
	})
	return nil
}

func (c *MemInfoCollector) Close() error { return nil }

// VMStatCollector 导出 /proc/vmstat
type VMStatCollector struct {
	name string
	path string
}

// NewVMStatCollector 创建 vmstat 采集器
func NewVMStatCollector(procPath string) *VMStatCollector {
	return &VMStatCollector{name: "vmstat", path: filepath.Join(procPath, "vmstat")}
}

func (c *VMStatCollector) Name() string { return c.name }

func (c *VMStatCollector) Init() error { return nil }

func (c *VMStatCollector) Collect(_ context.Context, f *metrics.MetricFactory) error {
	data, err := readTextFile(c.path, defaultFileLimit)
	if err != nil {
		return err
	}

	vmstat := f.NewVMStat()
	forEachKeyValue(data, " ", func(name, value string) {
		if n, ok := parseLeadingUint(value); ok {
			vmstat.Set(float64(n), name)
		}
	})
	return nil
}

func (c *VMStatCollector) Close() error { return nil }

// PressureCollector 系统级 PSI（/proc/pressure/*）。
// 读不到的资源只记日志并跳过，不影响同一次抓取里的其它采集器。
type PressureCollector struct {
	name     string
	procPath string
	fs       procfs.FS
}

// NewPressureCollector 创建 PSI 采集器
func NewPressureCollector(procPath string) *PressureCollector {
	return &PressureCollector{name: "pressure", procPath: procPath}
}

func (c *PressureCollector) Name() string { return c.name }

func (c *PressureCollector) Init() error {
	fs, err := procfs.NewFS(c.procPath)
	if err != nil {
		return fmt.Errorf("open procfs %s: %w", c.procPath, err)
	}
	c.fs = fs
	return nil
}

func (c *PressureCollector) Collect(_ context.Context, f *metrics.MetricFactory) error {
	var psi *metricsPressure
	for _, res := range pressureResources {
		stats, err := c.fs.PSIStatsForResource(res)
		if err != nil {
			// 未编译 PSI 时文件不存在；编译了但启动时关闭（psi=0）读取返回 EOPNOTSUPP
			if errors.Is(err, os.ErrNotExist) {
				logger.Debug("pressure stall information not available", zap.String("resource", res))
			} else {
				logger.Warn("skip unreadable pressure resource", zap.String("resource", res), zap.Error(err))
			}
			continue
		}
		if psi == nil {
			psi = newMetricsPressure(f)
		}
		psi.setLine(res, "some", stats.Some)
		psi.setLine(res, "full", stats.Full)
	}
	return nil
}

func (c *PressureCollector) Close() error { return nil }

type metricsPressure struct {
	ratio *prometheus.GaugeVec
	stall *prometheus.CounterVec
}

func newMetricsPressure(f *metrics.MetricFactory) *metricsPressure {
	return &metricsPressure{ratio: f.NewPressureRatio(), stall: f.NewPressureStallTime()}
}

func (m *metricsPressure) setLine(resource, typ string, line *procfs.PSILine) {
	if line == nil {
		return
	}
	m.ratio.WithLabelValues(resource, typ, "10").Set(line.Avg10)
	m.ratio.WithLabelValues(resource, typ, "60").Set(line.Avg60)
	m.ratio.WithLabelValues(resource, typ, "300").Set(line.Avg300)
	m.stall.WithLabelValues(resource, typ).Add(float64(line.Total) * 1e-6)
}
