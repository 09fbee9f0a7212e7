package router

import (
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/el-tor/eltor-app-sub000/pkg/socks"
)

// Handshake deadlines. Each phase gets its own deadline; once relaying
// begins the session runs without deadlines until either side closes.
const (
	greetingTimeout = 10 * time.Second
	requestTimeout  = 10 * time.Second
	dialTimeout     = 10 * time.Second
)

// Session states.
const (
	StateGreet int32 = iota
	StateMethodSelected
	StateRequestParsed
	StateDialing
	StateRelaying
	StateClosed
	StateFailed
)

var stateNames = map[int32]string{
	StateGreet:          "greet",
	StateMethodSelected: "method-selected",
	StateRequestParsed:  "request-parsed",
	StateDialing:        "dialing",
	StateRelaying:       "relaying",
	StateClosed:         "closed",
	StateFailed:         "failed",
}

// Session drives one accepted client connection from greeting to teardown.
// It exclusively owns its client and upstream sockets; the only shared state
// it touches is the read-only Config.
type Session struct {
	ID        uuid.UUID
	Peer      string
	StartedAt time.Time

	cfg    Config
	client net.Conn
	log    zerolog.Logger

	mu       sync.Mutex
	upstream net.Conn

	state        atomic.Int32
	target       atomic.Value // socks.Addr, set once parsed
	upstreamPort atomic.Uint32
	bytesUp      atomic.Int64
	bytesDown    atomic.Int64

	// methodReplied flips once [05 00] has been written; error replies are
	// only meaningful after that point. finalReplied guards the single
	// reply-frame-per-session invariant.
	methodReplied bool
	finalReplied  bool
}

func newSession(cfg Config, client net.Conn, parent zerolog.Logger) *Session {
	s := &Session{
		ID:        uuid.New(),
		Peer:      client.RemoteAddr().String(),
		StartedAt: time.Now(),
		cfg:       cfg,
		client:    client,
	}
	s.log = parent.With().Str("session", s.ID.String()).Str("peer", s.Peer).Logger()
	return s
}

// State returns the session's current state name.
func (s *Session) State() string {
	return stateNames[s.state.Load()]
}

// Target returns the parsed target address, or the empty string before the
// request has been parsed.
func (s *Session) Target() string {
	if addr, ok := s.target.Load().(socks.Addr); ok {
		return addr.String()
	}
	return ""
}

// Upstream returns the selected upstream port, or 0 before classification.
func (s *Session) Upstream() uint16 {
	return uint16(s.upstreamPort.Load())
}

// Bytes returns the relayed byte counts (client to upstream, upstream to
// client).
func (s *Session) Bytes() (up, down int64) {
	return s.bytesUp.Load(), s.bytesDown.Load()
}

// abort forcefully closes the session's sockets. Called by the router when
// the shutdown grace deadline expires.
func (s *Session) abort() {
	s.client.Close()
	s.mu.Lock()
	if s.upstream != nil {
		s.upstream.Close()
	}
	s.mu.Unlock()
}

// run executes the session state machine. It always closes both sockets
// before returning, on every exit path.
func (s *Session) run(ctx context.Context) {
	defer s.client.Close()

	if code := s.readGreeting(); code != socks.ErrNone {
		s.fail(code)
		return
	}
	s.state.Store(StateMethodSelected)

	request, target, code := s.readRequest()
	if code != socks.ErrNone {
		s.fail(code)
		return
	}
	s.state.Store(StateRequestParsed)
	s.target.Store(target)

	port := s.cfg.UpstreamPort(target)
	s.upstreamPort.Store(uint32(port))
	s.state.Store(StateDialing)
	s.log.Debug().Stringer("target", target).Uint16("upstream", port).Msg("Dialing upstream")

	upstream, reply, code := dialUpstream(ctx, port, request)
	if code != socks.ErrNone {
		s.fail(code)
		return
	}
	s.mu.Lock()
	s.upstream = upstream
	s.mu.Unlock()
	defer upstream.Close()

	// The upstream's reply is forwarded verbatim, bound address included.
	// A non-zero reply byte also travels through unchanged.
	s.finalReplied = true
	if _, err := s.client.Write(reply); err != nil {
		s.state.Store(StateFailed)
		return
	}
	if reply[1] != socks.Succeeded {
		s.log.Debug().Uint8("reply", reply[1]).Msg("Upstream rejected request")
		s.state.Store(StateFailed)
		return
	}

	s.state.Store(StateRelaying)
	s.relay()
	s.state.Store(StateClosed)
}

// readGreeting reads the method-negotiation frame and answers with NoAuth.
func (s *Session) readGreeting() byte {
	s.client.SetReadDeadline(time.Now().Add(greetingTimeout))

	var header [2]byte
	if _, err := io.ReadFull(s.client, header[:]); err != nil {
		return clientReadErrCode(err)
	}
	if header[0] != socks.Version5 {
		return socks.ErrInvalidVersion
	}
	if header[1] == 0 {
		return socks.ErrInvalidGreeting
	}

	methods := make([]byte, header[1])
	if _, err := io.ReadFull(s.client, methods); err != nil {
		return clientReadErrCode(err)
	}
	if !slices.Contains(methods, socks.NoAuth) {
		s.client.Write([]byte{socks.Version5, socks.NoAcceptableMethods})
		return socks.ErrNoAcceptableMethod
	}

	if _, err := s.client.Write([]byte{socks.Version5, socks.NoAuth}); err != nil {
		return socks.ErrSessionClosed
	}
	s.methodReplied = true
	return socks.ErrNone
}

// readRequest reads the client's CONNECT request. It returns the raw frame
// exactly as received, for verbatim forwarding to the upstream, along with
// the parsed target address.
func (s *Session) readRequest() ([]byte, socks.Addr, byte) {
	s.client.SetReadDeadline(time.Now().Add(requestTimeout))

	frame := make([]byte, 4, socks.MaxHeaderSize)
	if _, err := io.ReadFull(s.client, frame); err != nil {
		return nil, socks.Addr{}, clientReadErrCode(err)
	}
	if frame[0] != socks.Version5 {
		return nil, socks.Addr{}, socks.ErrInvalidVersion
	}
	if frame[1] != socks.Connect {
		return nil, socks.Addr{}, socks.ErrUnsupportedCommand
	}

	var addrLen int
	switch frame[3] {
	case socks.IPv4:
		addrLen = 4
	case socks.IPv6:
		addrLen = 16
	case socks.Domain:
		var length [1]byte
		if _, err := io.ReadFull(s.client, length[:]); err != nil {
			return nil, socks.Addr{}, clientReadErrCode(err)
		}
		if length[0] == 0 {
			return nil, socks.Addr{}, socks.ErrInvalidRequest
		}
		frame = append(frame, length[0])
		addrLen = int(length[0])
	default:
		return nil, socks.Addr{}, socks.ErrAddressNotSupported
	}

	rest := make([]byte, addrLen+2) // address + port
	if _, err := io.ReadFull(s.client, rest); err != nil {
		return nil, socks.Addr{}, clientReadErrCode(err)
	}
	frame = append(frame, rest...)

	target, _, code := socks.DecodeAddr(frame[3:])
	if code != socks.ErrNone {
		return nil, socks.Addr{}, code
	}

	s.client.SetReadDeadline(time.Time{})
	return frame, target, socks.ErrNone
}

// relay copies bytes in both directions until each side reaches EOF or
// errors. When one direction finishes, the write side of its destination is
// half-closed so the opposite direction can drain on its own schedule.
// Shutdown does not interrupt a relay directly: the router aborts straggler
// sessions by closing their sockets once the grace period expires, which
// unblocks both copies.
func (s *Session) relay() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		n, _ := io.Copy(s.upstream, s.client)
		s.bytesUp.Add(n)
		halfClose(s.upstream)
	}()

	go func() {
		defer wg.Done()
		n, _ := io.Copy(s.client, s.upstream)
		s.bytesDown.Add(n)
		halfClose(s.client)
	}()

	wg.Wait()

	up, down := s.Bytes()
	s.log.Debug().Int64("bytes_up", up).Int64("bytes_down", down).Msg("Relay finished")
}

// fail terminates a session before relaying. A SOCKS5 reply is attempted
// only if method negotiation succeeded and no reply frame has been sent yet;
// nothing non-SOCKS5 is ever written to the client.
func (s *Session) fail(code byte) {
	s.state.Store(StateFailed)
	if s.methodReplied && !s.finalReplied {
		s.finalReplied = true
		s.client.SetWriteDeadline(time.Now().Add(time.Second))
		s.client.Write(socks.ErrorReply(code))
	}
	s.log.Debug().Str("reason", socks.ErrToString[code]).Msg("Session failed")
}

// halfClose shuts down the write side of a TCP connection so the peer sees
// EOF while its own sends still drain.
func halfClose(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
}

// clientReadErrCode maps a handshake read error on the client socket to an
// internal error code.
func clientReadErrCode(err error) byte {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return socks.ErrTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return socks.ErrSessionClosed
	}
	return socks.ErrInvalidRequest
}
