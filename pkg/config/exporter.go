package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CgroupConfig cgroup-exporter 配置
type CgroupConfig struct {
	// OpaquePaths 这些分组只统计自身，不再深入子目录（相对 cgroup 根，如 "system.slice"）
	OpaquePaths []string `yaml:"opaque_paths" mapstructure:"opaque_paths" validate:"dive,required"`
	// IgnoreNames 目录名匹配任一 glob 时整棵子树忽略
	IgnoreNames []string `yaml:"ignore_names" mapstructure:"ignore_names" validate:"dive,required"`
}

// ProcessNameConfig 一条进程分组规则；各条件为空表示不限制
type ProcessNameConfig struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Comm    []string `yaml:"comm" mapstructure:"comm" validate:"dive,required"`
	Exe     []string `yaml:"exe" mapstructure:"exe" validate:"dive,required"`
	Cmdline []string `yaml:"cmdline" mapstructure:"cmdline" validate:"dive,required"`
}

// ProcessConfig process-exporter 配置，按顺序匹配，先匹配者生效
type ProcessConfig struct {
	ProcessNames []ProcessNameConfig `yaml:"process_names" mapstructure:"process_names" validate:"required,min=1,dive"`
}

// PingConfig ping-exporter 配置
type PingConfig struct {
	Addresses []string `yaml:"addresses" mapstructure:"addresses" validate:"required,min=1,dive,ip4_addr"`
}

// MultiConfig multi-exporter 配置
type MultiConfig struct {
	// Sources "/path" 为 unix socket，"@name" 为抽象 socket，其余按 URL 处理
	Sources []string `yaml:"sources" mapstructure:"sources" validate:"required,min=1,dive,required"`
}

// DefaultConfigFile 返回某个 exporter 的默认配置文件路径
func DefaultConfigFile(exporter string) string {
	return filepath.Join(DefaultConfigDir, exporter+".yml")
}

// readYAMLFile 用独立的 viper 实例读取 yaml 并解码
func readYAMLFile(path string, out any) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := decode(v.AllSettings(), out); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// LoadCgroupConfig 加载 cgroup 配置；默认路径不存在时返回空配置
func LoadCgroupConfig(path string, explicit bool) (*CgroupConfig, error) {
	cfg := &CgroupConfig{}
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}
	if err := readYAMLFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 校验 glob 语法，规范化 opaque 路径
func (c *CgroupConfig) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	for _, pattern := range c.IgnoreNames {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("ignore_names: bad pattern %q: %w", pattern, err)
		}
	}
	for i, p := range c.OpaquePaths {
		c.OpaquePaths[i] = strings.Trim(p, "/")
	}
	return nil
}

// LoadProcessConfig 加载进程分组配置（必须存在）
func LoadProcessConfig(path string) (*ProcessConfig, error) {
	cfg := &ProcessConfig{}
	if err := readYAMLFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 校验 cmdline 正则
func (c *ProcessConfig) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	for i, pn := range c.ProcessNames {
		for _, expr := range pn.Cmdline {
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("process_names[%d].cmdline: %w", i, err)
			}
		}
	}
	return nil
}

// LoadPingConfig 加载 ping 配置。
// 文件顶层通常是地址列表（viper 不支持顶层序列），因此直接用 yaml.v3 解析；
// 也兼容 "addresses:" 映射写法。
func LoadPingConfig(path string) (*PingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := &PingConfig{}
	if len(root.Content) > 0 {
		doc := root.Content[0]
		switch doc.Kind {
		case yaml.SequenceNode:
			err = doc.Decode(&cfg.Addresses)
		case yaml.MappingNode:
			err = doc.Decode(cfg)
		default:
			err = errors.New("sequence of addresses expected")
		}
		if err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	if err := valid.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// LoadMultiConfig 加载 multi 配置（必须存在）
func LoadMultiConfig(path string) (*MultiConfig, error) {
	cfg := &MultiConfig{}
	if err := readYAMLFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 每个数据源必须是 socket 路径或 http(s) URL
func (c *MultiConfig) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	for _, s := range c.Sources {
		switch {
		case strings.HasPrefix(s, "/"):
		case strings.HasPrefix(s, "@"):
			if len(s) == 1 {
				return fmt.Errorf("sources: empty abstract socket name")
			}
		default:
			u, err := url.Parse(s)
			if err != nil {
				return fmt.Errorf("sources: %w", err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("sources: unsupported scheme in %q", s)
			}
		}
	}
	return nil
}
