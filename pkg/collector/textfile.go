package collector

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrFileTooLarge 文件内容超过读取上限
var ErrFileTooLarge = errors.New("file too large")

// defaultFileLimit /proc、/sys 下的小文件读取上限
const defaultFileLimit = 64 * 1024

// readTextFile 一次读入整个文件，超过 limit 视为错误（proc 文件不能分段读取）
func readTextFile(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) >= limit {
		return "", fmt.Errorf("read %s: %w", path, ErrFileTooLarge)
	}
	return string(data), nil
}

// parseLeadingUint 解析开头的十进制数字，忽略后面的内容（如单位）
func parseLeadingUint(s string) (uint64, bool) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// forEachKeyValue 逐行拆分 "key<sep>value"，跳过空行
func forEachKeyValue(data string, sep string, fn func(key, value string)) {
	for _, line := range strings.Split(data, "\n") {
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		fn(key, value)
	}
}
