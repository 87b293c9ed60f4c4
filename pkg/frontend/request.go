package frontend

import (
	"bytes"
	"strconv"
)

// requestBufferSize 请求只读取一次，最多这么多字节
const requestBufferSize = 8192

var (
	headerAcceptEncoding = []byte("accept-encoding")
	codingGzip           = []byte("gzip")
	codingXGzip          = []byte("x-gzip")
)

// Request 只关心是否接受 gzip；方法、路径、版本一概不校验
type Request struct {
	AcceptsGzip bool
}

// ParseRequest 在请求头中查找 Accept-Encoding（名称不区分大小写），
// 值按 "a, b;q=0.5" 形式拆分，gzip（或 x-gzip）且 q 不为 0 即视为接受
func ParseRequest(data []byte) Request {
	var r Request
	started := false
	for len(data) > 0 {
		var line []byte
		line, data, _ = bytes.Cut(data, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			if started {
				// 头部结束
				break
			}
			continue
		}
		started = true

		name, value, ok := bytes.Cut(line, []byte{':'})
		if !ok || !bytes.EqualFold(bytes.TrimSpace(name), headerAcceptEncoding) {
			continue
		}
		if acceptsGzip(value) {
			r.AcceptsGzip = true
		}
	}
	return r
}

func acceptsGzip(value []byte) bool {
	for _, elem := range bytes.Split(value, []byte{','}) {
		coding, params, _ := bytes.Cut(elem, []byte{';'})
		coding = bytes.TrimSpace(coding)
		if !bytes.EqualFold(coding, codingGzip) && !bytes.EqualFold(coding, codingXGzip) {
			continue
		}
		if zeroQuality(params) {
			continue
		}
		return true
	}
	return false
}

// zeroQuality q=0 表示明确拒绝该编码
func zeroQuality(params []byte) bool {
	for _, p := range bytes.Split(params, []byte{';'}) {
		k, v, ok := bytes.Cut(p, []byte{'='})
		if !ok || !bytes.EqualFold(bytes.TrimSpace(k), []byte{'q'}) {
			continue
		}
		q, err := strconv.ParseFloat(string(bytes.TrimSpace(v)), 64)
		return err == nil && q == 0
	}
	return false
}
