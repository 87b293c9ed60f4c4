// Package frontend 把一个指标采集回调暴露出去：
// 由 systemd socket activation 启动时在继承的监听 socket 上提供最简 HTTP 服务，
// 否则采集一次并把结果写到 stdout。
package frontend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
)

// ErrNoListeners 要求 socket activation 但没有继承到任何监听 socket
var ErrNoListeners = errors.New("no systemd sockets")

// Collector 生成完整的响应体（Prometheus 文本格式）。
// 每次调用都必须重新采集，不能缓存上一次的结果。
type Collector interface {
	Collect(ctx context.Context) ([]byte, error)
}

// CollectorFunc 把普通函数适配成 Collector
type CollectorFunc func(ctx context.Context) ([]byte, error)

func (f CollectorFunc) Collect(ctx context.Context) ([]byte, error) { return f(ctx) }

// Options 前端行为选项
type Options struct {
	// ReadTimeout/WriteTimeout 设置到每个连接的 SO_RCVTIMEO/SO_SNDTIMEO，0 表示不超时
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequireListeners 为 true 时不允许退化成单次 stdout 模式
	RequireListeners bool
	// Stdout 单次模式的输出，默认 os.Stdout
	Stdout io.Writer
}

// Frontend 启动时决定走 HTTP 轮询循环还是单次 stdout 输出
type Frontend struct {
	source   ListenerSource
	notifier Notifier
	opts     Options
}

// New 创建前端；notifier 可以为 nil
func New(source ListenerSource, notifier Notifier, opts Options) *Frontend {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Frontend{source: source, notifier: notifier, opts: opts}
}

// Run 检查继承的监听 socket，数量大于 0 时进入 HTTP 轮询循环，否则执行单次输出
func (f *Frontend) Run(ctx context.Context, c Collector) error {
	files, err := f.source.Listeners()
	if err != nil {
		return fmt.Errorf("inspect socket activation: %w", err)
	}

	if len(files) == 0 {
		if f.opts.RequireListeners {
			return ErrNoListeners
		}
		logger.Debug("not socket activated, writing metrics to stdout")
		return RunStdout(ctx, c, f.opts.Stdout)
	}

	loop, err := NewLoop(files, c, f.opts)
	if err != nil {
		return err
	}
	logger.Info("socket activated, serving metrics", zap.Int("listeners", len(files)))

	// 通知失败不影响服务
	if err := f.notifier.Ready(); err != nil {
		logger.Warn("readiness notification failed", zap.Error(err))
	}
	return loop.Run(ctx)
}
