package collector

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
	"github.com/host-exporters/pkg/metrics"
)

const (
	defaultPingDelay    = time.Second
	defaultPingInterval = 10 * time.Second
)

// PingStats 一个目标的累计统计
type PingStats struct {
	Requests uint64
	Replies  uint64
	Errors   uint64
	Timeouts uint64
	// Wait 已收到 reply 的总等待时间
	Wait time.Duration
}

// pingTarget 后台探测协程写，采集时读
type pingTarget struct {
	addr netip.Addr
	name string

	mu    sync.RWMutex
	stats PingStats
	seq   int
}

// GetStats 线程安全地取统计快照
func (t *pingTarget) GetStats() PingStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

func (t *pingTarget) update(fn func(s *PingStats)) {
	t.mu.Lock()
	fn(&t.stats)
	t.mu.Unlock()
}

// PingCollector 对每个地址周期性发送 ICMP echo，采集时导出累计计数
type PingCollector struct {
	name     string
	pinger   Pinger
	delay    time.Duration
	interval time.Duration
	targets  []*pingTarget

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPingCollector 创建 ping 采集器，地址必须是 IPv4
func NewPingCollector(addresses []string, pinger Pinger) (*PingCollector, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &PingCollector{
		name:     "ping",
		pinger:   pinger,
		delay:    defaultPingDelay,
		interval: defaultPingInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, s := range addresses {
		addr, err := netip.ParseAddr(s)
		if err != nil || !addr.Is4() {
			cancel()
			return nil, fmt.Errorf("invalid IPv4 address %q", s)
		}
		c.targets = append(c.targets, &pingTarget{addr: addr, name: addr.String()})
	}
	return c, nil
}

func (c *PingCollector) Name() string { return c.name }

// Init 启动后台探测协程(非阻塞)
func (c *PingCollector) Init() error {
	c.startOnce.Do(func() {
		for _, t := range c.targets {
			c.wg.Add(1)
			go func(t *pingTarget) {
				defer c.wg.Done()
				c.run(t)
			}(t)
		}
		logger.Debug("ping targets started", zap.Int("targets", len(c.targets)),
			zap.Duration("interval", c.interval))
	})
	return nil
}

// run 首次延迟 delay 后探测，之后每 interval 一次；上一次未完成的探测在下一轮开始时算作超时
func (c *PingCollector) run(t *pingTarget) {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-timer.C:
		}
		timer.Reset(c.interval)
		c.pingOnce(t)
	}
}

func (c *PingCollector) pingOnce(t *pingTarget) {
	t.mu.Lock()
	t.stats.Requests++
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.ctx, c.interval)
	defer cancel()

	start := time.Now()
	err := c.pinger.Ping(ctx, t.addr, seq)
	switch {
	case err == nil:
		wait := time.Since(start)
		t.update(func(s *PingStats) {
			s.Replies++
			s.Wait += wait
		})
	case c.ctx.Err() != nil:
		// 正在退出
	case errors.Is(err, context.DeadlineExceeded):
		t.update(func(s *PingStats) { s.Timeouts++ })
	default:
		logger.Debug("ping failed", zap.String("address", t.name), zap.Error(err))
		t.update(func(s *PingStats) { s.Errors++ })
	}
}

func (c *PingCollector) Collect(_ context.Context, f *metrics.MetricFactory) error {
	m := f.NewPingMetrics()
	for _, t := range c.targets {
		s := t.GetStats()
		m.Requests.WithLabelValues(t.name).Add(float64(s.Requests))
		m.Replies.WithLabelValues(t.name).Add(float64(s.Replies))
		m.Wait.WithLabelValues(t.name).Add(s.Wait.Seconds())
		m.Errors.WithLabelValues(t.name).Add(float64(s.Errors))
		m.Timeouts.WithLabelValues(t.name).Add(float64(s.Timeouts))
	}
	return nil
}

// Close 停止全部探测协程并等待退出
func (c *PingCollector) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}
