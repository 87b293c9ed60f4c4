package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// protocolICMP IPv4 ICMP 协议号
const protocolICMP = 1

// Pinger 发送一次 echo 并等待对应的 reply；
// 等待超时返回 context.DeadlineExceeded，收到 ICMP 错误或发送失败返回其它错误
type Pinger interface {
	Ping(ctx context.Context, addr netip.Addr, seq int) error
}

// ICMPPinger 使用非特权 ICMP datagram socket（net.ipv4.ping_group_range）
type ICMPPinger struct {
	payload []byte
}

// NewICMPPinger 创建 ICMP 探测器
func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{payload: []byte("host-exporters-ping")}
}

func (p *ICMPPinger) Ping(ctx context.Context, addr netip.Addr, seq int) error {
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return fmt.Errorf("open icmp socket: %w", err)
	}
	defer conn.Close()

	seq &= 0xffff
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		// datagram socket 的 ID 由内核改写成本地端口，只按 seq 匹配
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: seq, Data: p.payload},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(wb, &net.UDPAddr{IP: addr.AsSlice()}); err != nil {
		return fmt.Errorf("send echo request: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	rb := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(rb)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return context.DeadlineExceeded
			}
			return err
		}
		reply, err := icmp.ParseMessage(protocolICMP, rb[:n])
		if err != nil {
			continue
		}
		switch reply.Type {
		case ipv4.ICMPTypeEchoReply:
			if echo, ok := reply.Body.(*icmp.Echo); ok && echo.Seq == seq {
				return nil
			}
		case ipv4.ICMPTypeDestinationUnreachable, ipv4.ICMPTypeTimeExceeded, ipv4.ICMPTypeParameterProblem:
			return fmt.Errorf("icmp %v from %s", reply.Type, addr)
		}
	}
}
