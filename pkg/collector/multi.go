package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/host-exporters/pkg/logger"
)

const (
	// maxSourceBody 单个数据源的响应体上限
	maxSourceBody = 32 * 1024 * 1024

	defaultMultiTimeout     = 30 * time.Second
	defaultMultiConcurrency = 8
)

// multiSource 一个上游 exporter："/path" 为 unix socket，"@name" 为抽象 socket，其余按 URL 处理
type multiSource struct {
	uri    string
	url    string
	client *http.Client
}

func newMultiSource(uri string, timeout time.Duration) *multiSource {
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	s := &multiSource{uri: uri, url: uri}

	switch {
	case strings.HasPrefix(uri, "/"):
		s.url = "http://local-socket.dummy/"
		tr.Proxy = nil
		tr.DialContext = unixDialer(uri)
	case strings.HasPrefix(uri, "@"):
		// Go 在 Linux 上把 "@" 开头的 unix 地址视为抽象 socket
		s.url = "http://abstract-socket.dummy/"
		tr.Proxy = nil
		tr.DialContext = unixDialer(uri)
	}

	s.client = &http.Client{Transport: tr, Timeout: timeout}
	return s
}

func unixDialer(addr string) func(ctx context.Context, _, _ string) (net.Conn, error) {
	return func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", addr)
	}
}

// fetch HTTP 状态码 >= 400 视为失败
func (s *multiSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("HTTP status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxSourceBody {
		return nil, ErrOutputTooLarge
	}
	return body, nil
}

// MultiCollector 把多个 exporter 的输出按配置顺序拼接成一个响应
type MultiCollector struct {
	sources     []*multiSource
	concurrency int
}

// NewMultiCollector 创建聚合采集器；timeout 为单个数据源的超时
func NewMultiCollector(uris []string, timeout time.Duration) *MultiCollector {
	if timeout <= 0 {
		timeout = defaultMultiTimeout
	}
	c := &MultiCollector{concurrency: defaultMultiConcurrency}
	for _, uri := range uris {
		c.sources = append(c.sources, newMultiSource(uri, timeout))
	}
	return c
}

// Collect 并行抓取所有数据源；失败的数据源记录日志后跳过，不影响其它数据源
func (c *MultiCollector) Collect(ctx context.Context) ([]byte, error) {
	bodies := make([][]byte, len(c.sources))
	errs := make([]error, len(c.sources))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, s := range c.sources {
		g.Go(func() error {
			body, err := s.fetch(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.uri, err)
				return nil
			}
			bodies[i] = body
			return nil
		})
	}
	_ = g.Wait()

	if err := multierr.Combine(errs...); err != nil {
		logger.Warn("some sources failed", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for _, body := range bodies {
		if len(body) == 0 {
			continue
		}
		out.Write(body)
		// 上游缺少结尾换行时补上，避免两段输出粘连
		if body[len(body)-1] != '\n' {
			out.WriteByte('\n')
		}
	}
	return out.Bytes(), nil
}

// Close 释放空闲连接
func (c *MultiCollector) Close() error {
	for _, s := range c.sources {
		s.client.CloseIdleConnections()
	}
	return nil
}
