package frontend

import (
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/host-exporters/pkg/logger"
)

// ListenerSource 提供启动器传入的、已经 bind+listen 的 socket
type ListenerSource interface {
	Listeners() ([]*os.File, error)
}

// Notifier 进入服务循环时通知进程管理器（只调用一次）
type Notifier interface {
	Ready() error
}

// SystemdListeners 按 LISTEN_PID/LISTEN_FDS 协议从 fd 3 开始取 socket
type SystemdListeners struct {
	// UnsetEnv 读取后清除 LISTEN_* 环境变量，避免子进程误继承
	UnsetEnv bool
}

func (s SystemdListeners) Listeners() ([]*os.File, error) {
	return activation.Files(s.UnsetEnv), nil
}

// StaticListeners 直接给定的监听 socket
type StaticListeners []*os.File

func (s StaticListeners) Listeners() ([]*os.File, error) {
	return s, nil
}

// SystemdNotifier 通过 NOTIFY_SOCKET 发送 READY=1
type SystemdNotifier struct{}

func (SystemdNotifier) Ready() error {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return err
	}
	if !sent {
		logger.Debug("NOTIFY_SOCKET not set, readiness notification skipped")
	}
	return nil
}

// NopNotifier 不做任何通知
type NopNotifier struct{}

func (NopNotifier) Ready() error { return nil }
