package collector

import (
	"strconv"
	"strings"
)

// pressureItem 一行 PSI 数据，未读到的字段为 -1
type pressureItem struct {
	Avg10, Avg60, Avg300 float64
	// StallTime 累计停顿时间（秒）
	StallTime float64
}

// pressureValues 一个 *.pressure 文件
type pressureValues struct {
	Some, Full pressureItem
}

func newPressureItem() pressureItem {
	return pressureItem{Avg10: -1, Avg60: -1, Avg300: -1, StallTime: -1}
}

// parsePressure 解析 "some avg10=0.00 avg60=0.00 avg300=0.00 total=0" 格式，
// 未知前缀和无法解析的字段忽略
func parsePressure(data string) pressureValues {
	result := pressureValues{Some: newPressureItem(), Full: newPressureItem()}
	for _, line := range strings.Split(data, "\n") {
		kind, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch kind {
		case "some":
			result.Some = parsePressureLine(rest)
		case "full":
			result.Full = parsePressureLine(rest)
		}
	}
	return result
}

func parsePressureLine(line string) pressureItem {
	item := newPressureItem()
	for _, field := range strings.Fields(line) {
		name, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch name {
		case "avg10":
			item.Avg10 = parseFloatOr(value, -1)
		case "avg60":
			item.Avg60 = parseFloatOr(value, -1)
		case "avg300":
			item.Avg300 = parseFloatOr(value, -1)
		case "total":
			if n, ok := parseLeadingUint(value); ok {
				item.StallTime = float64(n) * 1e-6
			}
		}
	}
	return item
}

func parseFloatOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
