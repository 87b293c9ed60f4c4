package collector

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/metrics"
)

// FilesystemCollector 已挂载文件系统的容量和 inode 用量
type FilesystemCollector struct {
	name string

	// partitions/usage 可在测试中替换
	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
}

// NewFilesystemCollector 创建文件系统采集器
func NewFilesystemCollector() *FilesystemCollector {
	return &FilesystemCollector{
		name:       "filesystem",
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
	}
}

func (c *FilesystemCollector) Name() string { return c.name }

func (c *FilesystemCollector) Init() error { return nil }

// Collect 遍历挂载表；单个挂载点 statfs 失败只记录日志
func (c *FilesystemCollector) Collect(ctx context.Context, f *metrics.MetricFactory) error {
	parts, err := c.partitions(ctx, true)
	if err != nil {
		return fmt.Errorf("list mounts: %w", err)
	}

	m := f.NewFilesystemMetrics()
	seen := make(map[string]struct{}, len(parts))
	var errs error
	for _, p := range parts {
		if !wantFilesystem(p) {
			continue
		}
		// 同一挂载点被多次挂载时只报告一次
		if _, ok := seen[p.Mountpoint]; ok {
			continue
		}
		seen[p.Mountpoint] = struct{}{}

		u, err := c.usage(ctx, p.Mountpoint)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("statfs %s: %w", p.Mountpoint, err))
			continue
		}

		labels := []string{p.Device, p.Fstype, p.Mountpoint}
		m.AvailBytes.WithLabelValues(labels...).Set(float64(u.Free))
		m.Files.WithLabelValues(labels...).Set(float64(u.InodesTotal))
		m.FilesFree.WithLabelValues(labels...).Set(float64(u.InodesFree))
		m.FreeBytes.WithLabelValues(labels...).Set(float64(u.Total - u.Used))
		m.SizeBytes.WithLabelValues(labels...).Set(float64(u.Total))
	}
	if errs != nil {
		logger.Warn("some filesystems skipped", zap.Error(errs))
	}
	return nil
}

func (c *FilesystemCollector) Close() error { return nil }

// wantFilesystem 只要可写、非 loop、由块设备承载的文件系统（btrfs 的 device 可能不在 /dev 下）
func wantFilesystem(p disk.PartitionStat) bool {
	if slices.Contains(p.Opts, "ro") {
		return false
	}
	if strings.HasPrefix(p.Device, "/dev/loop") {
		return false
	}
	if !strings.HasPrefix(p.Device, "/dev/") && p.Fstype != "btrfs" {
		return false
	}
	return true
}
