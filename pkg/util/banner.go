package util

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

const colorReset = "\x1b[0m"

// bannerColors ANSI 粗体前景色，none 表示不着色（输出重定向到文件时使用）
var bannerColors = map[string]string{
	"none":   "",
	"red":    "\x1b[1;31m",
	"green":  "\x1b[1;32m",
	"yellow": "\x1b[1;33m",
	"blue":   "\x1b[1;34m",
	"cyan":   "\x1b[1;36m",
}

// BannerColors 可选的颜色名，已排序
func BannerColors() []string {
	return slices.Sorted(maps.Keys(bannerColors))
}

// PrintBanner 把 name 渲染成 ASCII 字样写入 w，去掉行尾空白和空行。
// 单次模式下 stdout 是指标输出，调用方应传入 stderr。
func PrintBanner(w io.Writer, name, color string) error {
	code, ok := bannerColors[color]
	if !ok {
		return fmt.Errorf("unknown banner color %q", color)
	}

	for _, line := range figure.NewFigure(name, "", true).Slicify() {
		line = strings.TrimRight(line, " ")
		if line == "" {
			continue
		}
		if code != "" {
			line = code + line + colorReset
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
