package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/host-exporters/pkg/logger"
)

type listenerState uint8

const (
	listenerActive listenerState = iota
	listenerDead
)

func (s listenerState) String() string {
	if s == listenerDead {
		return "dead"
	}
	return "active"
}

// listenerSlot 持有 *os.File 以免 fd 被 finalizer 关闭
type listenerSlot struct {
	file  *os.File
	fd    int
	state listenerState
}

// Loop 单线程轮询所有监听 socket，一次只处理一个连接
type Loop struct {
	slots     []listenerSlot
	collector Collector
	opts      Options
}

// NewLoop 接管监听 socket 并设为非阻塞，至少需要一个
func NewLoop(files []*os.File, c Collector, opts Options) (*Loop, error) {
	if len(files) == 0 {
		return nil, ErrNoListeners
	}
	slots := make([]listenerSlot, 0, len(files))
	for _, f := range files {
		fd := int(f.Fd())
		if err := unix.SetNonblock(fd, true); err != nil {
			return nil, fmt.Errorf("set listener %s non-blocking: %w", f.Name(), err)
		}
		slots = append(slots, listenerSlot{file: f, fd: fd, state: listenerActive})
	}
	return &Loop{slots: slots, collector: c, opts: opts}, nil
}

// Active 仍在轮询中的监听数量
func (l *Loop) Active() int {
	n := 0
	for i := range l.slots {
		if l.slots[i].state == listenerActive {
			n++
		}
	}
	return n
}

// Run 阻塞直到 ctx 取消或全部监听失效（均返回 nil），poll 出错时返回错误
func (l *Loop) Run(ctx context.Context) error {
	// 唤醒管道：ctx 取消时让阻塞中的 poll 立即返回
	var wake [2]int
	if err := unix.Pipe2(wake[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return fmt.Errorf("create wake pipe: %w", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_, _ = unix.Write(wake[1], []byte{0})
		case <-done:
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
		_ = unix.Close(wake[0])
		_ = unix.Close(wake[1])
	}()

	fds := make([]unix.PollFd, 0, len(l.slots)+1)
	idx := make([]int, 0, len(l.slots))
	for {
		if ctx.Err() != nil {
			return nil
		}
		if l.Active() == 0 {
			logger.Warn("all listening sockets failed, stop serving")
			return nil
		}

		fds = append(fds[:0], unix.PollFd{Fd: int32(wake[0]), Events: unix.POLLIN})
		idx = idx[:0]
		for i := range l.slots {
			if l.slots[i].state != listenerActive {
				continue
			}
			fds = append(fds, unix.PollFd{Fd: int32(l.slots[i].fd), Events: unix.POLLIN})
			idx = append(idx, i)
		}

		n, err := unix.Poll(fds, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return errors.New("poll returned without ready descriptors")
		}
		if fds[0].Revents != 0 {
			logger.Debug("shutdown requested, leaving poll loop")
			return nil
		}

		for i, pfd := range fds[1:] {
			slot := &l.slots[idx[i]]
			switch {
			case pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0:
				slot.state = listenerDead
				logger.Warn("listening socket failed, removed from poll set",
					zap.String("socket", slot.file.Name()),
					zap.Int16("revents", pfd.Revents))
			case pfd.Revents&unix.POLLIN != 0:
				l.accept(ctx, slot)
			}
		}
	}
}

// accept 失败只跳过本轮，该监听下一轮继续轮询
func (l *Loop) accept(ctx context.Context, slot *listenerSlot) {
	conn, _, err := unix.Accept4(slot.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
			logger.Warn("accept failed", zap.String("socket", slot.file.Name()), zap.Error(err))
		}
		return
	}
	defer unix.Close(conn)
	l.serve(ctx, conn)
}

// serve 读一次请求，采集，写完整响应后半关闭写端；任何一步失败都直接关闭连接且不写响应
func (l *Loop) serve(ctx context.Context, conn int) {
	if err := setTimeouts(conn, l.opts.ReadTimeout, l.opts.WriteTimeout); err != nil {
		logger.Warn("set connection timeouts failed", zap.Error(err))
	}

	var buf [requestBufferSize]byte
	n, err := readOnce(conn, buf[:])
	if err != nil {
		logger.Debug("read request failed", zap.Error(err))
		return
	}
	if n == 0 {
		// 对端没发请求就关闭了
		return
	}
	req := ParseRequest(buf[:n])

	body, err := l.collector.Collect(ctx)
	if err != nil {
		logger.Error("collect metrics failed", zap.Error(err))
		return
	}

	resp, err := BuildResponse(body, req.AcceptsGzip)
	if err != nil {
		logger.Error("build response failed", zap.Error(err))
		return
	}

	if err := sendAll(conn, resp); err != nil {
		logger.Debug("send response failed", zap.Error(err))
		return
	}
	if err := unix.Shutdown(conn, unix.SHUT_WR); err != nil {
		logger.Debug("shutdown connection failed", zap.Error(err))
	}
}
