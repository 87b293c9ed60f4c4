package frontend_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/host-exporters/pkg/frontend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const ioTimeout = 5 * time.Second

type testListener struct {
	file *os.File
	fd   int
	addr string
}

// newListener 返回一个只剩 *os.File 持有的 TCP 监听 socket，模拟继承来的 fd
func newListener(t *testing.T) testListener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	f, err := ln.(*net.TCPListener).File()
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	t.Cleanup(func() { _ = f.Close() })
	return testListener{file: f, fd: int(f.Fd()), addr: addr}
}

func staticBody(body string) (frontend.Collector, *atomic.Int32) {
	var calls atomic.Int32
	return frontend.CollectorFunc(func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(body), nil
	}), &calls
}

type runningLoop struct {
	cancel context.CancelFunc
	errCh  chan error
}

func startLoop(t *testing.T, c frontend.Collector, opts frontend.Options, lns ...testListener) *runningLoop {
	t.Helper()
	files := make([]*os.File, 0, len(lns))
	for _, ln := range lns {
		files = append(files, ln.file)
	}
	loop, err := frontend.NewLoop(files, c, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r := &runningLoop{cancel: cancel, errCh: make(chan error, 1)}
	go func() { r.errCh <- loop.Run(ctx) }()
	return r
}

func (r *runningLoop) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errCh:
		return err
	case <-time.After(ioTimeout):
		t.Fatal("loop did not return")
		return nil
	}
}

func (r *runningLoop) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	assert.NoError(t, r.wait(t))
}

func rawScrape(t *testing.T, addr, request string) []byte {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, ioTimeout)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(ioTimeout)))
	_, err = conn.Write([]byte(request))
	require.NoError(t, err)
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return data
}

func TestLoopServesPlainResponse(t *testing.T) {
	ln := newListener(t)
	c, calls := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, ln)
	defer r.stop(t)

	resp := rawScrape(t, ln.addr, "GET /metrics HTTP/1.1\r\nHost: localhost\r\n\r\n")
	assert.Equal(t,
		"HTTP/1.1 200 OK\r\nconnection: close\r\ncontent-type: text/plain\r\ncontent-length: 6\r\n\r\nfoo 1\n",
		string(resp))
	assert.EqualValues(t, 1, calls.Load())
}

func TestLoopCollectsOnEveryRequest(t *testing.T) {
	ln := newListener(t)
	c, calls := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, ln)
	defer r.stop(t)

	first := rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n")
	second := rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, calls.Load())
}

func TestLoopGzipWithHTTPClient(t *testing.T) {
	ln := newListener(t)
	body := strings.Repeat("node_memory_bytes{name=\"MemFree\"} 1.2345e+09\n", 50)
	c, _ := staticBody(body)
	r := startLoop(t, c, frontend.Options{}, ln)
	defer r.stop(t)

	// Transport 默认发送 Accept-Encoding: gzip 并透明解压
	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	client := &http.Client{Transport: tr, Timeout: ioTimeout}

	resp, err := client.Get("http://" + ln.addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Uncompressed)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, body, string(got))
}

func TestLoopGzipRaw(t *testing.T) {
	ln := newListener(t)
	c, _ := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, ln)
	defer r.stop(t)

	resp := rawScrape(t, ln.addr, "GET / HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")
	header, payload, ok := bytes.Cut(resp, []byte("\r\n\r\n"))
	require.True(t, ok)
	assert.Contains(t, string(header), "content-encoding: gzip\r\n")
	assert.Equal(t, "foo 1\n", string(gunzip(t, payload)))
}

func TestLoopClosesWithoutResponse(t *testing.T) {
	t.Run("peer sends nothing", func(t *testing.T) {
		ln := newListener(t)
		c, calls := staticBody("foo 1\n")
		r := startLoop(t, c, frontend.Options{}, ln)
		defer r.stop(t)

		conn, err := net.DialTimeout("tcp", ln.addr, ioTimeout)
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.SetDeadline(time.Now().Add(ioTimeout)))
		require.NoError(t, conn.(*net.TCPConn).CloseWrite())

		data, err := io.ReadAll(conn)
		require.NoError(t, err)
		assert.Empty(t, data)
		assert.EqualValues(t, 0, calls.Load())

		// 下一个请求照常处理
		assert.NotEmpty(t, rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n"))
	})

	t.Run("collector fails", func(t *testing.T) {
		ln := newListener(t)
		var calls atomic.Int32
		c := frontend.CollectorFunc(func(context.Context) ([]byte, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("read /proc/meminfo: boom")
			}
			return []byte("foo 1\n"), nil
		})
		r := startLoop(t, c, frontend.Options{}, ln)
		defer r.stop(t)

		assert.Empty(t, rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n"))
		assert.True(t, bytes.HasSuffix(rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n"), []byte("\r\n\r\nfoo 1\n")))
	})
}

func TestLoopReadTimeout(t *testing.T) {
	ln := newListener(t)
	c, calls := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{ReadTimeout: 100 * time.Millisecond}, ln)
	defer r.stop(t)

	idle, err := net.DialTimeout("tcp", ln.addr, ioTimeout)
	require.NoError(t, err)
	defer idle.Close()
	require.NoError(t, idle.SetDeadline(time.Now().Add(ioTimeout)))

	// 空闲连接超时被关闭，不会卡住后面的请求
	data, err := io.ReadAll(idle)
	require.NoError(t, err)
	assert.Empty(t, data)

	assert.NotEmpty(t, rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestLoopMultipleListeners(t *testing.T) {
	a, b := newListener(t), newListener(t)
	c, calls := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, a, b)
	defer r.stop(t)

	assert.Equal(t, rawScrape(t, a.addr, "GET / HTTP/1.1\r\n\r\n"), rawScrape(t, b.addr, "GET / HTTP/1.1\r\n\r\n"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestLoopDropsFailedListener(t *testing.T) {
	a, b := newListener(t), newListener(t)
	c, _ := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, a, b)
	defer r.stop(t)

	// 关闭后的监听 socket 在 poll 中报告 POLLHUP
	require.NoError(t, unix.Shutdown(a.fd, unix.SHUT_RDWR))

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", a.addr, time.Second)
		if err != nil {
			return true
		}
		_ = conn.Close()
		return false
	}, ioTimeout, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, bytes.HasSuffix(rawScrape(t, b.addr, "GET / HTTP/1.1\r\n\r\n"), []byte("foo 1\n")))
	}
}

func TestLoopReturnsWhenAllListenersFail(t *testing.T) {
	a, b := newListener(t), newListener(t)
	c, _ := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, a, b)
	defer r.cancel()

	require.NoError(t, unix.Shutdown(a.fd, unix.SHUT_RDWR))
	require.NoError(t, unix.Shutdown(b.fd, unix.SHUT_RDWR))
	assert.NoError(t, r.wait(t))
}

func TestLoopStopsOnCancel(t *testing.T) {
	ln := newListener(t)
	c, calls := staticBody("foo 1\n")
	r := startLoop(t, c, frontend.Options{}, ln)
	r.stop(t)
	assert.EqualValues(t, 0, calls.Load())
}

func TestNewLoopWithoutListeners(t *testing.T) {
	c, _ := staticBody("")
	_, err := frontend.NewLoop(nil, c, frontend.Options{})
	assert.ErrorIs(t, err, frontend.ErrNoListeners)
}
