package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/host-exporters/pkg/config"
	"github.com/host-exporters/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockFatalHook 捕获 fatal 日志（不退出进程）
type mockFatalHook struct {
	called bool
}

func (h *mockFatalHook) Hook(e zapcore.Entry) error {
	if e.Level == zapcore.FatalLevel {
		h.called = true
	}
	return nil
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, logger.ParseLevel("err"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("whatever"))
}

func TestPackageFunctionsCarryExporter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	logger.SetDefaultExporter("kernel")
	t.Cleanup(func() {
		logger.SetLogger(zap.NewNop())
		logger.SetDefaultExporter("")
	})

	logger.Debug("debug msg", zap.Int("n", 1))
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug msg", entries[0].Message)
	assert.Equal(t, "kernel", entries[0].ContextMap()["exporter"])
	assert.EqualValues(t, 1, entries[0].ContextMap()["n"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "kernel", logger.GetDefaultExporter())
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.ZapLogConfig{
		Level:   "info",
		Format:  "console",
		Path:    dir,
		MaxSize: 1,
		MaxAge:  1,
	}

	var buf bytes.Buffer
	l, err := logger.New(cfg, "cgroup", zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("visible")
	require.NoError(t, l.Sync())

	assert.Contains(t, buf.String(), "visible")
	assert.NotContains(t, buf.String(), "hidden")

	files, err := filepath.Glob(filepath.Join(dir, "cgroup-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"visible"`)
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(&config.ZapLogConfig{Level: "debug", Format: "json"}, "", zapcore.AddSync(&buf))
	require.NoError(t, err)

	l.Debug("json msg")
	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestFatalHook(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(&config.ZapLogConfig{Level: "info", Format: "json"}, "", zapcore.AddSync(&buf))
	require.NoError(t, err)

	// Fatal 测试（使用 zap.Hooks + WithFatalHook，不触发 os.Exit）
	hook := &mockFatalHook{}
	l = l.WithOptions(zap.Hooks(hook.Hook), zap.WithFatalHook(zapcore.WriteThenPanic))
	assert.Panics(t, func() { l.Fatal("fatal msg") })
	assert.True(t, hook.called)
}
