package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/host-exporters/pkg/config"
)

type Logger = zap.Logger

var (
	// Init 之前使用 nop logger，库代码和测试不会因为未初始化而 panic
	baseLogger    = zap.NewNop()
	defaultFields = struct {
		Exporter string
	}{}
	loggerInitOnce sync.Once
	mu             sync.RWMutex
)

// ParseLevel 解析日志级别，未知级别按 info 处理
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "dbg", "debug":
		return zapcore.DebugLevel
	case "war", "warn":
		return zapcore.WarnLevel
	case "err", "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init 初始化全局日志。
// stdout 在单次模式下承载指标输出，因此终端日志一律写 stderr；
// 配置了 Path 时另外写一份按天切割的 JSON 文件。
func Init(cfg *config.ZapLogConfig, exporter string) error {
	var err error
	loggerInitOnce.Do(func() {
		var l *zap.Logger
		l, err = New(cfg, exporter, os.Stderr)
		if err != nil {
			return
		}
		mu.Lock()
		baseLogger = l
		mu.Unlock()
	})
	return err
}

// New 按配置构建 logger，stderr 部分写入 w
func New(cfg *config.ZapLogConfig, exporter string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	// 终端彩色时间
	customTimeEncoderConsole := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000 -07:00")))
	}

	// JSON 日志纯文本时间
	customTimeEncoderJSON := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
	}

	coloredLevelEncoder := func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelStr string
		switch level {
		case zapcore.DebugLevel:
			levelStr = "\033[36mDEBUG\033[0m"
		case zapcore.InfoLevel:
			levelStr = "\033[32mINFO \033[0m"
		case zapcore.WarnLevel:
			levelStr = "\033[33mWARN \033[0m"
		case zapcore.ErrorLevel:
			levelStr = "\033[31mERROR\033[0m"
		case zapcore.FatalLevel:
			levelStr = "\033[35mFATAL\033[0m"
		default:
			levelStr = level.CapitalString()
		}
		enc.AppendString(levelStr)
	}

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "timestamp"
	jsonCfg.EncodeTime = customTimeEncoderJSON
	jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var stderrEncoder zapcore.Encoder
	if cfg.Format == "json" {
		stderrEncoder = zapcore.NewJSONEncoder(jsonCfg)
	} else {
		consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
		consoleEncoderCfg.ConsoleSeparator = " "
		consoleEncoderCfg.EncodeLevel = coloredLevelEncoder
		consoleEncoderCfg.EncodeTime = customTimeEncoderConsole
		// Caller 两级路径
		consoleEncoderCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
			rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
			enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
		}
		stderrEncoder = zapcore.NewConsoleEncoder(consoleEncoderCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(stderrEncoder, w, level)}

	if cfg.Path != "" {
		writer, err := newRotateWriter(cfg, exporter)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(writer), level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// newRotateWriter 文件切割：MaxBackup>0 按个数保留，否则按天数保留（rotatelogs 不允许两者同时设置）
func newRotateWriter(cfg *config.ZapLogConfig, exporter string) (*rotatelogs.RotateLogs, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	opts := []rotatelogs.Option{
		rotatelogs.WithRotationTime(24 * time.Hour),
		rotatelogs.WithRotationSize(int64(cfg.MaxSize) * 1024 * 1024),
	}
	if cfg.MaxBackup > 0 {
		opts = append(opts, rotatelogs.WithRotationCount(uint(cfg.MaxBackup)))
	} else {
		opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAge)*24*time.Hour))
	}
	if exporter == "" {
		exporter = "exporter"
	}
	w, err := rotatelogs.New(filepath.Join(cfg.Path, exporter+"-%Y%m%d.log"), opts...)
	if err != nil {
		return nil, fmt.Errorf("open rotate log: %w", err)
	}
	return w, nil
}

// SetLogger 替换全局 logger（测试中注入 observer）
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	baseLogger = l
}

func SetDefaultExporter(exporter string) {
	mu.Lock()
	defer mu.Unlock()
	defaultFields.Exporter = exporter
}

func GetDefaultExporter() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultFields.Exporter
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	mu.RLock()
	l := baseLogger
	exporter := defaultFields.Exporter
	mu.RUnlock()

	if ce := l.Check(level, msg); ce != nil {
		if exporter != "" {
			fields = append(fields, zap.String("exporter", exporter))
		}
		ce.Write(fields...)
	}
}

func Debug(msg string, fields ...zapcore.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { log(zap.ErrorLevel, msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { log(zap.FatalLevel, msg, fields...) }

func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger.Sync()
}

func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}
