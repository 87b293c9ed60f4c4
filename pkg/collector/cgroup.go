package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/cgroups"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tklauser/go-sysconf"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/metrics"
)

const defaultCgroupRoot = "/sys/fs/cgroup"

// cgroupV1Mounts v1 下需要遍历的控制器挂载点
var cgroupV1Mounts = []string{"cpuacct", "memory", "pids", "unified"}

// cgroupValues 一个分组读到的数据，-1 表示没有对应文件
type cgroupValues struct {
	cpuUsage, cpuUser, cpuSystem float64

	memUsage, swapUsage, kmemUsage, memswUsage int64
	failcnt, kmemFailcnt, memswFailcnt         int64
	memStat                                    map[string]uint64

	pids int64

	pressure map[string]pressureValues
}

func newCgroupValues() *cgroupValues {
	return &cgroupValues{
		cpuUsage: -1, cpuUser: -1, cpuSystem: -1,
		memUsage: -1, swapUsage: -1, kmemUsage: -1, memswUsage: -1,
		failcnt: -1, kmemFailcnt: -1, memswFailcnt: -1,
		pids: -1,
	}
}

// CgroupCollector 遍历 cgroup 层级，导出 CPU、内存、pids 和 PSI
type CgroupCollector struct {
	name   string
	root   string
	opaque map[string]struct{}
	ignore []string

	unified        bool
	secondsPerTick float64
}

// NewCgroupCollector 创建 cgroup 采集器，root 通常是 /sys/fs/cgroup
func NewCgroupCollector(root string, cfg *config.CgroupConfig) *CgroupCollector {
	c := &CgroupCollector{
		name:   "cgroup",
		root:   root,
		opaque: make(map[string]struct{}),
	}
	if cfg != nil {
		for _, p := range cfg.OpaquePaths {
			c.opaque[p] = struct{}{}
		}
		c.ignore = cfg.IgnoreNames
	}
	return c
}

func (c *CgroupCollector) Name() string { return c.name }

// Init 判断 cgroup 版本并读取 USER_HZ
func (c *CgroupCollector) Init() error {
	if _, err := os.Stat(c.root); err != nil {
		return fmt.Errorf("cgroup root: %w", err)
	}
	c.unified = c.detectUnified()

	ticks, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || ticks <= 0 {
		logger.Warn("cannot read clock ticks, assuming 100", zap.Error(err))
		ticks = 100
	}
	c.secondsPerTick = 1 / float64(ticks)

	logger.Debug("cgroup hierarchy detected", zap.String("root", c.root), zap.Bool("unified", c.unified))
	return nil
}

func (c *CgroupCollector) detectUnified() bool {
	if c.root == defaultCgroupRoot {
		return cgroups.Mode() == cgroups.Unified
	}
	_, err := os.Stat(filepath.Join(c.root, "cgroup.subtree_control"))
	return err == nil
}

func (c *CgroupCollector) Collect(ctx context.Context, f *metrics.MetricFactory) error {
	groups := make(map[string]*cgroupValues)
	var errs error

	if c.unified {
		errs = c.walk(ctx, c.root, groups)
	} else {
		for _, mnt := range cgroupV1Mounts {
			base := filepath.Join(c.root, mnt)
			if _, err := os.Stat(base); errors.Is(err, os.ErrNotExist) {
				logger.Debug("cgroup controller not mounted", zap.String("path", base))
				continue
			}
			errs = multierr.Append(errs, c.walk(ctx, base, groups))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs != nil {
		logger.Warn("some cgroup files skipped", zap.Int("errors", len(multierr.Errors(errs))), zap.Error(errs))
	}

	c.export(f.NewCgroupMetrics(), groups)
	return nil
}

func (c *CgroupCollector) Close() error { return nil }

// walk 只解析挂载点本身的符号链接（v1 的 cpuacct -> cpu,cpuacct），
// 其下的符号链接不跟随，跳过点开头的条目；opaque 分组只读取自身文件
func (c *CgroupCollector) walk(ctx context.Context, mount string, groups map[string]*cgroupValues) error {
	base, err := filepath.EvalSymlinks(mount)
	if err != nil {
		return fmt.Errorf("resolve cgroup mount: %w", err)
	}

	var errs error
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = multierr.Append(errs, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == base {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		parent := groupPath(base, filepath.Dir(path))
		switch {
		case d.IsDir():
			if _, ok := c.opaque[parent]; ok || c.ignored(name) {
				return filepath.SkipDir
			}
		case d.Type().IsRegular():
			group := unescapeGroupName(parent)
			v, ok := groups[group]
			if !ok {
				v = newCgroupValues()
				groups[group] = v
			}
			if err := c.readFile(v, path, name); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, ctx.Err()) {
		errs = multierr.Append(errs, walkErr)
	}
	return errs
}

func (c *CgroupCollector) ignored(name string) bool {
	for _, pattern := range c.ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// groupPath 分组名是相对根的路径，根分组为空串
func groupPath(base, dir string) string {
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "." {
		return ""
	}
	return rel
}

// unescapeGroupName systemd 把单元名里的 "-" 转义成 "\x2d"
func unescapeGroupName(name string) string {
	return strings.ReplaceAll(name, `\x2d`, "-")
}

func readUintFile(path string) (uint64, error) {
	data, err := readTextFile(path, 64)
	if err != nil {
		return 0, err
	}
	n, ok := parseLeadingUint(data)
	if !ok {
		return 0, fmt.Errorf("parse %s: not a number", path)
	}
	return n, nil
}

func readIntFile(path string, dst *int64) error {
	n, err := readUintFile(path)
	if err != nil {
		return err
	}
	*dst = int64(n)
	return nil
}

func forEachNameValueFile(path string, fn func(name, value string)) error {
	data, err := readTextFile(path, defaultFileLimit)
	if err != nil {
		return err
	}
	forEachKeyValue(data, " ", fn)
	return nil
}

// readFile 只处理已知的控制文件，其它文件忽略
func (c *CgroupCollector) readFile(v *cgroupValues, path, name string) error {
	switch name {
	case "cpuacct.usage": // v1，纳秒
		n, err := readUintFile(path)
		if err != nil {
			return err
		}
		v.cpuUsage = float64(n) * 1e-9
	case "cpuacct.stat": // v1，USER_HZ
		return forEachNameValueFile(path, func(key, value string) {
			n, ok := parseLeadingUint(value)
			if !ok {
				return
			}
			switch key {
			case "user":
				v.cpuUser = float64(n) * c.secondsPerTick
			case "system":
				v.cpuSystem = float64(n) * c.secondsPerTick
			}
		})
	case "cpu.stat": // v2，微秒
		return forEachNameValueFile(path, func(key, value string) {
			n, ok := parseLeadingUint(value)
			if !ok {
				return
			}
			switch key {
			case "usage_usec":
				v.cpuUsage = float64(n) * 1e-6
			case "user_usec":
				v.cpuUser = float64(n) * 1e-6
			case "system_usec":
				v.cpuSystem = float64(n) * 1e-6
			}
		})
	case "memory.usage_in_bytes", "memory.current":
		return readIntFile(path, &v.memUsage)
	case "memory.swap.current":
		return readIntFile(path, &v.swapUsage)
	case "memory.kmem.usage_in_bytes":
		return readIntFile(path, &v.kmemUsage)
	case "memory.memsw.usage_in_bytes":
		return readIntFile(path, &v.memswUsage)
	case "memory.failcnt":
		return readIntFile(path, &v.failcnt)
	case "memory.kmem.failcnt":
		return readIntFile(path, &v.kmemFailcnt)
	case "memory.memsw.failcnt":
		return readIntFile(path, &v.memswFailcnt)
	case "memory.stat":
		stat := make(map[string]uint64)
		err := forEachNameValueFile(path, func(key, value string) {
			// hierarchical_memory_limit 等不是用量
			if strings.HasSuffix(key, "_limit") {
				return
			}
			if n, ok := parseLeadingUint(value); ok {
				stat[key] = n
			}
		})
		if err != nil {
			return err
		}
		v.memStat = stat
	case "pids.current":
		return readIntFile(path, &v.pids)
	case "cpu.pressure", "io.pressure", "memory.pressure":
		data, err := readTextFile(path, defaultFileLimit)
		if err != nil {
			return err
		}
		if v.pressure == nil {
			v.pressure = make(map[string]pressureValues, len(pressureResources))
		}
		v.pressure[strings.TrimSuffix(name, ".pressure")] = parsePressure(data)
	}
	return nil
}

// memoryTypes 固定的内存类型，memory.stat 中同名字段不再重复导出
var memoryTypes = map[string]struct{}{
	"total": {}, "swap": {}, "kmem.total": {}, "memsw.total": {},
}

func (c *CgroupCollector) export(m *metrics.CgroupMetrics, groups map[string]*cgroupValues) {
	for group, v := range groups {
		addCounter(m.CPUUsage, v.cpuUser, group, "user")
		addCounter(m.CPUUsage, v.cpuSystem, group, "system")
		addCounter(m.CPUUsage, v.cpuUsage, group, "total")

		setGauge(m.MemoryUsage, float64(v.memUsage), group, "total")
		setGauge(m.MemoryUsage, float64(v.swapUsage), group, "swap")
		setGauge(m.MemoryUsage, float64(v.kmemUsage), group, "kmem.total")
		setGauge(m.MemoryUsage, float64(v.memswUsage), group, "memsw.total")
		for key, n := range v.memStat {
			if _, ok := memoryTypes[key]; ok {
				continue
			}
			m.MemoryUsage.WithLabelValues(group, key).Set(float64(n))
		}

		addCounter(m.MemoryFailures, float64(v.failcnt), group, "memory")
		addCounter(m.MemoryFailures, float64(v.kmemFailcnt), group, "kmem")
		addCounter(m.MemoryFailures, float64(v.memswFailcnt), group, "memsw")

		setGauge(m.Pids, float64(v.pids), group)

		for resource, p := range v.pressure {
			for _, item := range []struct {
				typ  string
				vals pressureItem
			}{{"some", p.Some}, {"full", p.Full}} {
				setGauge(m.PressureRatio, item.vals.Avg10, group, resource, item.typ, "10")
				setGauge(m.PressureRatio, item.vals.Avg60, group, resource, item.typ, "60")
				setGauge(m.PressureRatio, item.vals.Avg300, group, resource, item.typ, "300")
				addCounter(m.PressureStallTime, item.vals.StallTime, group, resource, item.typ)
			}
		}
	}
}

// setGauge/addCounter 负值表示未读到，不导出
func setGauge(g *prometheus.GaugeVec, value float64, labels ...string) {
	if value >= 0 {
		g.WithLabelValues(labels...).Set(value)
	}
}

func addCounter(c *prometheus.CounterVec, value float64, labels ...string) {
	if value >= 0 {
		c.WithLabelValues(labels...).Add(value)
	}
}
