package router

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Acceptor tuning.
const (
	// MaxSessions caps simultaneous sessions. Past the cap, accepted
	// sockets are closed immediately with no reply.
	MaxSessions = 4096

	// acceptBackoff is the pause after a transient accept error.
	acceptBackoff = 100 * time.Millisecond

	// stopGrace bounds how long Stop waits for in-flight sessions before
	// aborting them.
	stopGrace = 5 * time.Second

	// probeTimeout bounds the optional startup reachability probe.
	probeTimeout = 2 * time.Second
)

// Router accepts SOCKS5 client connections and splits them across the two
// loopback upstreams. One Router owns one listening socket; sessions own
// their own sockets and share nothing but the immutable Config.
type Router struct {
	cfg      Config
	listener net.Listener
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sessions sync.Map // uuid.UUID -> *Session
	slots    chan struct{}
	wg       sync.WaitGroup
}

// SessionInfo is a point-in-time snapshot of a live session.
type SessionInfo struct {
	ID        uuid.UUID
	Peer      string
	Target    string
	Upstream  uint16
	State     string
	StartedAt time.Time
	BytesUp   int64
	BytesDown int64
}

// New creates a router with the given configuration. The parent context
// bounds the router's lifetime; canceling it is equivalent to calling Stop.
func New(ctx context.Context, cfg Config) *Router {
	r := &Router{
		cfg:   cfg,
		log:   log.With().Str("component", "router").Logger(),
		slots: make(chan struct{}, MaxSessions),
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	return r
}

// Config returns the router's immutable configuration.
func (r *Router) Config() Config {
	return r.cfg
}

// Start binds the listener and begins accepting sessions. It returns once
// the listener is bound; upstream reachability is probed in the background
// and never delays or fails startup.
func (r *Router) Start() error {
	addr := fmt.Sprintf("%s:%d", r.cfg.BindAddr, r.cfg.ListenPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	r.listener = listener

	r.log.Info().Str("listen", listener.Addr().String()).
		Uint16("hidden_upstream", r.cfg.HiddenUpstreamPort).
		Uint16("default_upstream", r.cfg.DefaultUpstreamPort).
		Msg("Splitting router started")

	go r.probeUpstreams()
	go r.acceptLoop()
	return nil
}

// Addr returns the listener's address, which carries the actual port when
// the configuration asked for an ephemeral one.
func (r *Router) Addr() net.Addr {
	return r.listener.Addr()
}

// Stop shuts the router down: it stops accepting, lets in-flight sessions
// drain within the grace period, then aborts stragglers.
func (r *Router) Stop() {
	r.cancel()
	if r.listener != nil {
		r.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopGrace):
		r.log.Warn().Msg("Grace period expired, aborting remaining sessions")
		r.sessions.Range(func(_, value any) bool {
			value.(*Session).abort()
			return true
		})
		<-done
	}
	r.log.Info().Msg("Splitting router stopped")
}

// Sessions returns a snapshot of all live sessions.
func (r *Router) Sessions() []SessionInfo {
	var infos []SessionInfo
	r.sessions.Range(func(_, value any) bool {
		s := value.(*Session)
		up, down := s.Bytes()
		infos = append(infos, SessionInfo{
			ID:        s.ID,
			Peer:      s.Peer,
			Target:    s.Target(),
			Upstream:  s.Upstream(),
			State:     s.State(),
			StartedAt: s.StartedAt,
			BytesUp:   up,
			BytesDown: down,
		})
		return true
	})
	return infos
}

// acceptLoop accepts client connections until shutdown. Transient accept
// errors are logged and retried after a short backoff; they never terminate
// the router.
func (r *Router) acceptLoop() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.log.Warn().Err(err).Msg("Accept failed, backing off")
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(acceptBackoff):
			}
			continue
		}

		select {
		case r.slots <- struct{}{}:
		default:
			// Saturated: close with no reply rather than queue.
			r.log.Warn().Str("peer", conn.RemoteAddr().String()).Msg("Session limit reached, dropping connection")
			conn.Close()
			continue
		}

		session := newSession(r.cfg, conn, r.log)
		r.sessions.Store(session.ID, session)
		r.wg.Add(1)
		go func() {
			defer func() {
				r.sessions.Delete(session.ID)
				<-r.slots
				r.wg.Done()
			}()
			session.run(r.ctx)
		}()
	}
}

// probeUpstreams dials each upstream once at startup and logs the outcome.
// Purely informational: per-session failures still surface as SOCKS replies,
// and an upstream that comes up late works without a restart.
func (r *Router) probeUpstreams() {
	for _, probe := range []struct {
		name string
		port uint16
	}{
		{"hidden", r.cfg.HiddenUpstreamPort},
		{"default", r.cfg.DefaultUpstreamPort},
	} {
		addr := fmt.Sprintf("%s:%d", upstreamHost, probe.port)
		conn, err := net.DialTimeout("tcp", addr, probeTimeout)
		if err != nil {
			r.log.Warn().Str("upstream", probe.name).Str("addr", addr).
				Msg("Upstream not reachable yet")
			continue
		}
		conn.Close()
		r.log.Debug().Str("upstream", probe.name).Str("addr", addr).Msg("Upstream reachable")
	}
}
