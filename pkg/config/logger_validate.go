package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//Validate 规则说明
//字段	已通过 tag 校验	额外业务校验
//Level	oneof 预校验	再进行 map lookup，避免大小写或隐藏错误
//Format	oneof=json console	无
//Path	可为空	非空时必须是可写目录，自动创建
//MaxSize	gt=0	无
//MaxBackup	gte=0	无
//MaxAge	gte=0	MaxBackup 为 0 时必须大于 0

// Validate 日志配置校验
func (l *ZapLogConfig) Validate() error {
	if err := valid.Struct(l); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("log.level invalid (valid: debug/info/warn/error), got %s", l.Level)
	}

	// 不落盘，无需检查目录
	if l.Path == "" {
		return nil
	}
	if l.MaxBackup == 0 && l.MaxAge == 0 {
		return fmt.Errorf("log.max-age or log.max-backup must be set when log.path is used")
	}
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return fmt.Errorf("log.path %s: %w", l.Path, err)
	}
	if err := ensureDir(abs); err != nil {
		return fmt.Errorf("log.path %s is not a writable directory: %w", l.Path, err)
	}
	return nil
}

func ensureDir(path string) error {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
