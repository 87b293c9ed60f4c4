package frontend

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// maxHeaderSize 响应头全部由内部常量生成，1024 字节足够
const maxHeaderSize = 1024

const responseHeaderPrefix = "HTTP/1.1 200 OK\r\n" +
	"connection: close\r\n" +
	"content-type: text/plain\r\n"

// BuildResponse 拼出完整响应（头 + 体），useGzip 时先压缩响应体
func BuildResponse(body []byte, useGzip bool) ([]byte, error) {
	if useGzip {
		compressed, err := Compress(body)
		if err != nil {
			return nil, err
		}
		body = compressed
	}

	var hdr [maxHeaderSize]byte
	h := appendHeader(hdr[:0], len(body), useGzip)
	if len(h) > maxHeaderSize {
		panic("frontend: response header exceeds buffer")
	}

	resp := make([]byte, 0, len(h)+len(body))
	resp = append(resp, h...)
	return append(resp, body...), nil
}

func appendHeader(dst []byte, contentLength int, useGzip bool) []byte {
	dst = append(dst, responseHeaderPrefix...)
	if useGzip {
		dst = append(dst, "content-encoding: gzip\r\n"...)
	}
	dst = append(dst, "content-length: "...)
	dst = strconv.AppendInt(dst, int64(contentLength), 10)
	return append(dst, "\r\n\r\n"...)
}

// Compress gzip 压缩到内存
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}
