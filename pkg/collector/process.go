package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/prometheus/procfs"
	"github.com/tklauser/go-sysconf"
	"go.uber.org/zap"

	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/metrics"
)

// processRule 编译后的分组规则
type processRule struct {
	name    string
	comm    map[string]struct{}
	exe     map[string]struct{}
	cmdline []*regexp.Regexp
}

func newProcessRule(cfg config.ProcessNameConfig) (processRule, error) {
	r := processRule{name: cfg.Name}
	if len(cfg.Comm) > 0 {
		r.comm = make(map[string]struct{}, len(cfg.Comm))
		for _, s := range cfg.Comm {
			r.comm[s] = struct{}{}
		}
	}
	if len(cfg.Exe) > 0 {
		r.exe = make(map[string]struct{}, len(cfg.Exe))
		for _, s := range cfg.Exe {
			r.exe[s] = struct{}{}
		}
	}
	for _, expr := range cfg.Cmdline {
		re, err := regexp.Compile(expr)
		if err != nil {
			return processRule{}, fmt.Errorf("cmdline %q: %w", expr, err)
		}
		r.cmdline = append(r.cmdline, re)
	}
	return r, nil
}

// match 各条件为空时不限制；cmdline 任一正则匹配即可
func (r processRule) match(p processInfo) bool {
	if r.comm != nil {
		if _, ok := r.comm[p.comm]; !ok {
			return false
		}
	}
	if r.exe != nil {
		if _, ok := r.exe[p.exe]; !ok {
			return false
		}
	}
	if len(r.cmdline) > 0 {
		cmdline := p.cmdline()
		for _, re := range r.cmdline {
			if re.MatchString(cmdline) {
				return true
			}
		}
		return false
	}
	return true
}

func (r processRule) groupName(p processInfo) string {
	if r.name != "" {
		return r.name
	}
	return p.exe
}

// processInfo 匹配规则需要的进程属性；cmdline 按需读取
type processInfo struct {
	comm    string
	exe     string
	cmdline func() string
}

// processGroup 一个分组的累计值（按线程求和）
type processGroup struct {
	procs, threads               uint64
	voluntary, nonvoluntary      uint64
	minflt, majflt, utime, stime uint64
	vsize, rss                   uint64
}

// ProcessCollector 按配置把进程分组，导出每组的资源用量
type ProcessCollector struct {
	name     string
	procPath string
	rules    []processRule
	fs       procfs.FS

	secondsPerTick float64
	pageSize       uint64
}

// NewProcessCollector 创建进程组采集器
func NewProcessCollector(procPath string, cfg *config.ProcessConfig) (*ProcessCollector, error) {
	c := &ProcessCollector{name: "process", procPath: procPath}
	for i, pn := range cfg.ProcessNames {
		r, err := newProcessRule(pn)
		if err != nil {
			return nil, fmt.Errorf("process_names[%d]: %w", i, err)
		}
		c.rules = append(c.rules, r)
	}
	return c, nil
}

func (c *ProcessCollector) Name() string { return c.name }

func (c *ProcessCollector) Init() error {
	fs, err := procfs.NewFS(c.procPath)
	if err != nil {
		return fmt.Errorf("open procfs %s: %w", c.procPath, err)
	}
	c.fs = fs

	ticks, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || ticks <= 0 {
		logger.Warn("cannot read clock ticks, assuming 100", zap.Error(err))
		ticks = 100
	}
	c.secondsPerTick = 1 / float64(ticks)
	c.pageSize = uint64(os.Getpagesize())
	return nil
}

func (c *ProcessCollector) Collect(ctx context.Context, f *metrics.MetricFactory) error {
	procs, err := c.fs.AllProcs()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	groups := make(map[string]*processGroup)
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 进程随时可能退出，读取失败直接跳过
		if err := c.collectProcess(p, groups); err != nil {
			logger.Debug("skip process", zap.Int("pid", p.PID), zap.Error(err))
		}
	}

	c.export(f.NewProcessMetrics(), groups)
	return nil
}

func (c *ProcessCollector) Close() error { return nil }

func (c *ProcessCollector) collectProcess(p procfs.Proc, groups map[string]*processGroup) error {
	exe, err := p.Executable()
	if err != nil {
		return err
	}
	exe = filepath.Base(strings.TrimSuffix(exe, " (deleted)"))
	if exe == "" || exe == "." || exe == "/" {
		// 内核线程没有 exe
		return nil
	}

	stat, err := p.Stat()
	if err != nil {
		return err
	}

	info := processInfo{
		comm: stat.Comm,
		exe:  exe,
		cmdline: func() string {
			args, err := p.CmdLine()
			if err != nil {
				return ""
			}
			return strings.Join(args, " ")
		},
	}
	name := c.groupName(info)
	if name == "" {
		return nil
	}

	g, ok := groups[name]
	if !ok {
		g = &processGroup{}
		groups[name] = g
	}
	g.procs++

	threads, err := c.fs.AllThreads(p.PID)
	if err != nil {
		return err
	}
	for _, t := range threads {
		ts, err := t.Stat()
		if err != nil {
			continue
		}
		g.threads++
		g.minflt += uint64(ts.MinFlt)
		g.majflt += uint64(ts.MajFlt)
		g.utime += uint64(ts.UTime)
		g.stime += uint64(ts.STime)
		g.vsize += uint64(ts.VSize)
		if ts.RSS > 0 {
			g.rss += uint64(ts.RSS)
		}
		if status, err := t.NewStatus(); err == nil {
			g.voluntary += status.VoluntaryCtxtSwitches
			g.nonvoluntary += status.NonVoluntaryCtxtSwitches
		}
	}
	return nil
}

// groupName 第一条匹配的规则决定分组，全部不匹配返回空串
func (c *ProcessCollector) groupName(info processInfo) string {
	for _, r := range c.rules {
		if r.match(info) {
			return r.groupName(info)
		}
	}
	return ""
}

func (c *ProcessCollector) export(m *metrics.ProcessMetrics, groups map[string]*processGroup) {
	for name, g := range groups {
		m.ContextSwitches.WithLabelValues(name, "nonvoluntary").Add(float64(g.nonvoluntary))
		m.ContextSwitches.WithLabelValues(name, "voluntary").Add(float64(g.voluntary))
		m.CPUSeconds.WithLabelValues(name, "system").Add(float64(g.stime) * c.secondsPerTick)
		m.CPUSeconds.WithLabelValues(name, "user").Add(float64(g.utime) * c.secondsPerTick)
		m.MemoryBytes.WithLabelValues(name, "resident").Set(float64(g.rss * c.pageSize))
		m.MemoryBytes.WithLabelValues(name, "virtual").Set(float64(g.vsize))
		m.MinorFaults.WithLabelValues(name).Add(float64(g.minflt))
		m.MajorFaults.WithLabelValues(name).Add(float64(g.majflt))
		m.NumProcs.WithLabelValues(name).Set(float64(g.procs))
		m.NumThreads.WithLabelValues(name).Set(float64(g.threads))
	}
}
