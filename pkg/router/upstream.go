package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/el-tor/eltor-app-sub000/pkg/socks"
)

// Upstreams are always reached over loopback; the router never dials out.
const upstreamHost = "127.0.0.1"

// dialUpstream connects to the loopback SOCKS5 upstream on port and completes
// a CONNECT handshake on behalf of the client. After the router's own method
// negotiation ([05 01 00] / [05 00]) succeeds, the client's original request
// frame is forwarded byte-for-byte; the router never rebuilds it.
//
// On success it returns the open upstream socket with deadlines cleared and
// the upstream's full reply frame, which may carry a non-zero reply byte.
// On failure the socket is closed and a mapped error code is returned.
func dialUpstream(ctx context.Context, port uint16, request []byte) (net.Conn, []byte, byte) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", upstreamHost, port))
	if err != nil {
		return nil, nil, dialErrCode(err)
	}

	conn.SetDeadline(time.Now().Add(dialTimeout))

	// Method negotiation: offer NoAuth only.
	if _, err := conn.Write([]byte{socks.Version5, 0x01, socks.NoAuth}); err != nil {
		conn.Close()
		return nil, nil, socks.ErrUpstreamProtocol
	}

	var method [2]byte
	if _, err := io.ReadFull(conn, method[:]); err != nil {
		conn.Close()
		return nil, nil, readErrCode(err)
	}
	if method[0] != socks.Version5 {
		conn.Close()
		return nil, nil, socks.ErrUpstreamProtocol
	}
	if method[1] != socks.NoAuth {
		conn.Close()
		return nil, nil, socks.ErrUpstreamAuthRejected
	}

	// Forward the client's request frame verbatim.
	if _, err := conn.Write(request); err != nil {
		conn.Close()
		return nil, nil, socks.ErrUpstreamProtocol
	}

	reply, code := readReplyFrame(conn)
	if code != socks.ErrNone {
		conn.Close()
		return nil, nil, code
	}

	conn.SetDeadline(time.Time{})
	return conn, reply, socks.ErrNone
}

// readReplyFrame reads a complete SOCKS5 reply from the upstream: a fixed
// 4-byte header, a bound address whose length follows from the address-type
// byte, and a 2-byte port. The frame is returned exactly as read so the
// session can forward it to the client unrewritten.
func readReplyFrame(conn net.Conn) ([]byte, byte) {
	frame := make([]byte, 4, socks.MaxHeaderSize)
	if _, err := io.ReadFull(conn, frame); err != nil {
		return nil, readErrCode(err)
	}
	if frame[0] != socks.Version5 {
		return nil, socks.ErrUpstreamProtocol
	}

	var addrLen int
	switch frame[3] {
	case socks.IPv4:
		addrLen = 4
	case socks.IPv6:
		addrLen = 16
	case socks.Domain:
		var length [1]byte
		if _, err := io.ReadFull(conn, length[:]); err != nil {
			return nil, readErrCode(err)
		}
		if length[0] == 0 {
			return nil, socks.ErrUpstreamProtocol
		}
		frame = append(frame, length[0])
		addrLen = int(length[0])
	default:
		return nil, socks.ErrUpstreamProtocol
	}

	rest := make([]byte, addrLen+2) // bound address + port
	if _, err := io.ReadFull(conn, rest); err != nil {
		return nil, readErrCode(err)
	}
	return append(frame, rest...), socks.ErrNone
}

// dialErrCode maps a dial error to an internal error code.
func dialErrCode(err error) byte {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return socks.ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return socks.ErrUpstreamRefused
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return socks.ErrUpstreamUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return socks.ErrUpstreamRefused
	}
	return socks.ErrUpstreamUnreachable
}

// readErrCode maps a handshake read error to an internal error code.
func readErrCode(err error) byte {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return socks.ErrTimeout
	}
	return socks.ErrUpstreamProtocol
}
