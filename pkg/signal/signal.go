package signal

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/host-exporters/pkg/logger"
)

// ShutdownSignals 触发优雅退出的信号
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// WithShutdown 返回收到退出信号（SIGINT/SIGTERM）时取消的 context。
// 调用方结束时必须调用返回的 cancel，释放信号监听。
func WithShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, ShutdownSignals...)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ErrShutdownTimeout 清理函数没有在期限内返回
var ErrShutdownTimeout = errors.New("shutdown timed out")

// Shutdown 在超时控制下执行清理逻辑
func Shutdown(timeout time.Duration, shutdownFunc func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- shutdownFunc(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown failed", zap.Error(err))
			return err
		}
		logger.Debug("shutdown completed")
		return nil
	case <-ctx.Done():
		logger.Error("shutdown timed out", zap.Duration("timeout", timeout))
		return ErrShutdownTimeout
	}
}
