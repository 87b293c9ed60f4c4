package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/host-exporters/pkg/metrics"
)

// ErrOutputTooLarge 子进程输出超过上限
var ErrOutputTooLarge = errors.New("too much output from child process")

// DefaultBgpCommand OpenBGPD 的邻居查询命令
var DefaultBgpCommand = []string{"/usr/sbin/bgpctl", "-j", "show", "neighbor"}

// maxBgpOutput bgpctl 输出上限
const maxBgpOutput = 256 * 1024

// bgpStates 邻居状态到数值的映射，未知状态为 -1
var bgpStates = map[string]float64{
	"Idle":        0,
	"Connect":     1,
	"Active":      2,
	"OpenSent":    3,
	"OpenConfirm": 4,
	"Established": 5,
}

// BgpCollector 每次采集都运行一次 bgpctl 并解析其 JSON 输出
type BgpCollector struct {
	name      string
	argv      []string
	maxOutput int64
}

// NewBgpCollector 创建 BGP 采集器，argv 为空时使用 DefaultBgpCommand
func NewBgpCollector(argv []string) *BgpCollector {
	if len(argv) == 0 {
		argv = DefaultBgpCommand
	}
	return &BgpCollector{name: "bgp", argv: argv, maxOutput: maxBgpOutput}
}

func (c *BgpCollector) Name() string { return c.name }

func (c *BgpCollector) Init() error {
	if _, err := exec.LookPath(c.argv[0]); err != nil {
		return fmt.Errorf("bgp command: %w", err)
	}
	return nil
}

func (c *BgpCollector) Collect(ctx context.Context, f *metrics.MetricFactory) error {
	out, err := runLimited(ctx, c.argv, c.maxOutput)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(out) {
		return fmt.Errorf("%s: invalid JSON output", c.argv[0])
	}

	m := f.NewBgpPeerMetrics()
	neighbors := gjson.GetBytes(out, "neighbors")
	if !neighbors.IsArray() {
		return nil
	}
	var exportErr error
	neighbors.ForEach(func(_, n gjson.Result) bool {
		exportErr = exportNeighbor(m, n)
		return exportErr == nil
	})
	return exportErr
}

func (c *BgpCollector) Close() error { return nil }

func exportNeighbor(m *metrics.BgpPeerMetrics, n gjson.Result) error {
	labels := make([]string, 0, 3)
	for _, key := range []string{"remote_as", "description", "remote_addr"} {
		v := n.Get(key)
		if !v.Exists() {
			return fmt.Errorf("neighbor without %q", key)
		}
		labels = append(labels, v.String())
	}

	if t := n.Get("last_updown_sec"); t.Exists() {
		m.Time.WithLabelValues(labels...).Set(t.Float())
	}
	if s := n.Get("state"); s.Exists() {
		state, ok := bgpStates[s.String()]
		if !ok {
			state = -1
		}
		m.State.WithLabelValues(labels...).Set(state)
	}

	stats := n.Get("stats")
	if !stats.Exists() {
		return nil
	}
	if p := stats.Get("prefixes"); p.Exists() {
		sent, err := requireNumber(p, "sent")
		if err != nil {
			return err
		}
		received, err := requireNumber(p, "received")
		if err != nil {
			return err
		}
		m.PrefixesAdvertised.WithLabelValues(labels...).Set(sent)
		m.PrefixesReceived.WithLabelValues(labels...).Set(received)
	}
	if msg := stats.Get("message"); msg.Exists() {
		sent, err := requireNumber(msg, "sent.total")
		if err != nil {
			return err
		}
		received, err := requireNumber(msg, "received.total")
		if err != nil {
			return err
		}
		m.MessagesSent.WithLabelValues(labels...).Set(sent)
		m.MessagesReceived.WithLabelValues(labels...).Set(received)
	}
	if u := stats.Get("update"); u.Exists() {
		var sum [2]float64
		for i, dir := range []string{"sent", "received"} {
			for _, kind := range []string{"updates", "withdraws"} {
				v, err := requireNumber(u, dir+"."+kind)
				if err != nil {
					return err
				}
				sum[i] += v
			}
		}
		m.UpdatesSent.WithLabelValues(labels...).Set(sum[0])
		m.UpdatesReceived.WithLabelValues(labels...).Set(sum[1])
	}
	return nil
}

func requireNumber(r gjson.Result, path string) (float64, error) {
	v := r.Get(path)
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("missing number %q", path)
	}
	return v.Float(), nil
}

// runLimited 运行命令并读取 stdout，超过 limit 字节时终止子进程
func runLimited(ctx context.Context, argv []string, limit int64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", argv[0], err)
	}

	data, readErr := io.ReadAll(io.LimitReader(stdout, limit+1))
	if int64(len(data)) > limit {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("%s: %w", argv[0], ErrOutputTooLarge)
	}
	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", argv[0], err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read output of %s: %w", argv[0], readErr)
	}
	return data, nil
}
