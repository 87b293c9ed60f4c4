package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DefaultConfigDir 各 exporter 默认配置文件所在目录
const DefaultConfigDir = "/etc/prometheus-exporters"

// EnvPrefix 环境变量前缀（EXPORTER_LOG_LEVEL -> log.level）
const EnvPrefix = "EXPORTER"

var valid = validator.New()

// Config 全局配置结构体（命令行参数 + 环境变量，所有 exporter 共用）
type Config struct {
	Server      ServerConfig `yaml:"server" mapstructure:"server" comment:"连接处理配置"`
	Log         ZapLogConfig `yaml:"log" mapstructure:"log" comment:"日志配置"`
	Path        PathConfig   `yaml:"path" mapstructure:"path" comment:"伪文件系统挂载点"`
	Banner      bool         `yaml:"banner" mapstructure:"banner" env:"BANNER" comment:"启动时在stderr打印banner"`
	BannerColor string       `yaml:"banner_color" mapstructure:"banner-color" env:"BANNER_COLOR" validate:"required,oneof=none red green yellow blue cyan" comment:"banner颜色" default:"blue"`
}

// ServerConfig 单个连接的收发超时（0 表示不设超时，阻塞直到对端动作）
type ServerConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read-timeout" env:"SERVER_READ_TIMEOUT" validate:"gte=0" comment:"读取请求超时（如5s）"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write-timeout" env:"SERVER_WRITE_TIMEOUT" validate:"gte=0" comment:"写响应超时（如5s）"`
}

// PathConfig procfs/sysfs 挂载点，测试或容器内可指向其他目录
type PathConfig struct {
	Procfs string `yaml:"procfs" mapstructure:"procfs" env:"PATH_PROCFS" validate:"required" comment:"procfs挂载点"`
	Sysfs  string `yaml:"sysfs" mapstructure:"sysfs" env:"PATH_SYSFS" validate:"required" comment:"sysfs挂载点"`
}

// ZapLogConfig 日志配置；Path 为空时只输出到 stderr
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error" comment:"日志级别" default:"info"`
	Format    string `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console" comment:"stderr日志格式（json/console）" default:"console"`
	Path      string `yaml:"path" mapstructure:"path" env:"LOG_PATH" comment:"日志文件目录，为空则不落盘" default:""`
	MaxSize   int    `yaml:"max_size" mapstructure:"max-size" env:"LOG_MAX_SIZE" validate:"gt=0" comment:"单个日志文件最大大小（MB）" default:"100"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max-backup" env:"LOG_MAX_BACKUP" validate:"gte=0" comment:"保留的日志文件数，0表示按天数清理" default:"0"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max-age" env:"LOG_MAX_AGE" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ReadTimeout:  0,
			WriteTimeout: 0,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "console",
			Path:      "",
			MaxSize:   100,
			MaxBackup: 0,
			MaxAge:    7,
		},
		Path: PathConfig{
			Procfs: "/proc",
			Sysfs:  "/sys",
		},
		BannerColor: "blue",
	}
}

// LoadConfigWithCli 合并 (Flags + ENV)，解码并校验
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 绑定环境变量 EXPORTER_LOG_MAX_AGE -> log.max-age
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 3. 解码到结构体
	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// 4. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// decode 用 mapstructure 解码（支持 "30s" 和 "a,b,c" 形式）
func decode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	return decoder.Decode(input)
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
