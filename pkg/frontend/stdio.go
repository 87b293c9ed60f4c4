package frontend

import (
	"context"
	"fmt"
	"io"
)

// RunStdout 采集一次并把结果原样写到 w。
// 结果在写出前已完整缓存，采集失败时 w 不会收到任何数据。
func RunStdout(ctx context.Context, c Collector, w io.Writer) error {
	body, err := c.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
