package frontend_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/host-exporters/pkg/frontend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Ready() error {
	n.calls++
	return n.err
}

func TestRunWritesStdoutWithoutListeners(t *testing.T) {
	var out bytes.Buffer
	c, calls := staticBody("foo 1\nbar 2\n")
	n := &countingNotifier{}

	err := frontend.New(frontend.StaticListeners(nil), n, frontend.Options{Stdout: &out}).
		Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "foo 1\nbar 2\n", out.String())
	assert.EqualValues(t, 1, calls.Load())
	assert.Zero(t, n.calls)
}

func TestRunStdoutCollectorFailure(t *testing.T) {
	var out bytes.Buffer
	c := frontend.CollectorFunc(func(context.Context) ([]byte, error) {
		return nil, errors.New("open /proc/loadavg: no such file or directory")
	})

	err := frontend.New(frontend.StaticListeners(nil), nil, frontend.Options{Stdout: &out}).
		Run(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/proc/loadavg")
	assert.Zero(t, out.Len())
}

func TestRunRequiresListeners(t *testing.T) {
	var out bytes.Buffer
	c, calls := staticBody("foo 1\n")

	err := frontend.New(frontend.StaticListeners(nil), nil,
		frontend.Options{Stdout: &out, RequireListeners: true}).Run(context.Background(), c)
	assert.ErrorIs(t, err, frontend.ErrNoListeners)
	assert.Equal(t, "no systemd sockets", err.Error())
	assert.Zero(t, out.Len())
	assert.EqualValues(t, 0, calls.Load())
}

func TestRunServesAndNotifiesOnce(t *testing.T) {
	ln := newListener(t)
	c, _ := staticBody("foo 1\n")
	n := &countingNotifier{err: errors.New("notify socket gone")}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- frontend.New(frontend.StaticListeners{ln.file}, n, frontend.Options{}).Run(ctx, c)
	}()

	// 通知失败不影响服务
	assert.True(t, bytes.HasSuffix(rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n"), []byte("foo 1\n")))
	assert.True(t, bytes.HasSuffix(rawScrape(t, ln.addr, "GET / HTTP/1.1\r\n\r\n"), []byte("foo 1\n")))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(ioTimeout):
		t.Fatal("frontend did not stop")
	}
	assert.Equal(t, 1, n.calls)
}

func TestSystemdListenersWithoutActivation(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")
	files, err := frontend.SystemdListeners{}.Listeners()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSystemdNotifierSendsReady(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	require.NoError(t, err)
	defer conn.Close()
	t.Setenv("NOTIFY_SOCKET", sock)

	require.NoError(t, frontend.SystemdNotifier{}.Ready())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ioTimeout)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "READY=1", string(buf[:n]))
}

func TestSystemdNotifierWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	assert.NoError(t, frontend.SystemdNotifier{}.Ready())
}

func TestRunStdoutWriteError(t *testing.T) {
	c, _ := staticBody("foo 1\n")
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	defer w.Close()

	assert.Error(t, frontend.RunStdout(context.Background(), c, w))
}
