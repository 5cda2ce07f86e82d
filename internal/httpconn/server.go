package httpconn

import (
	"context"
	"log"
	"sync"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h2/stream"
	"github.com/celeris-http/celeris/internal/httperr"
)

// ServerConfigureOptions binds a server-side Connection's request callback.
// Every accepted Connection must be configured before its first request
// can be dispatched; ConfigureServer performs that binding.
type ServerConfigureOptions struct {
	OnIncomingRequest func(conn *Connection, userData any)
	OnShutdown        func(conn *Connection, errorCode int, userData any)
	UserData          any
}

// ConfigureServer attaches request/shutdown callbacks to a server-side
// Connection. Calling it on a client connection, or calling it twice on
// the same connection, is an invalid-state error.
func ConfigureServer(conn *Connection, opts ServerConfigureOptions) error {
	if opts.OnIncomingRequest == nil {
		return httperr.New(httperr.CodeInvalidArgument, "ServerConfigureOptions.OnIncomingRequest is required")
	}
	if !conn.server {
		return httperr.New(httperr.CodeInvalidState, "ConfigureServer called on a client connection")
	}
	if conn.srv != nil && conn.srv.configured {
		return httperr.New(httperr.CodeInvalidState, "connection is already configured")
	}
	conn.srv = &serverData{
		OnIncomingRequest: opts.OnIncomingRequest,
		OnShutdown:        opts.OnShutdown,
		UserData:          opts.UserData,
		configured:        true,
	}
	return nil
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	Dialer        channel.Dialer
	Endpoint      channel.Endpoint
	SocketOptions channel.SocketOptions
	TLSOptions    *channel.TLSOptions

	Handler stream.Handler
	Logger  *log.Logger

	OnAcceptSetup    func(conn *Connection, errorCode int)
	OnAcceptShutdown func(conn *Connection, errorCode int)

	MaxConcurrentStreams uint32
}

// Server owns a listening socket and every Connection it has accepted and
// not yet finished shutting down.
type Server struct {
	opts     ServerOptions
	listener channel.Listener

	mu                sync.Mutex
	shuttingDown      bool
	conns             map[*channel.Channel]*Connection
	onDestroyComplete func()
}

// NewServer starts listening on opts.Endpoint. The map is allocated before
// Dialer.Listen is called so the accept callback, which can fire as soon
// as Listen returns (on some platforms even before it returns on the
// calling goroutine), always observes a non-nil map.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Handler == nil {
		return nil, httperr.New(httperr.CodeInvalidArgument, "ServerOptions.Handler is required")
	}
	if opts.Dialer == nil {
		opts.Dialer = channel.CurrentDialer()
	}

	srv := &Server{
		opts:  opts,
		conns: make(map[*channel.Channel]*Connection),
	}

	ln, err := opts.Dialer.Listen(context.Background(), opts.Endpoint, opts.SocketOptions, opts.TLSOptions, srv.onAcceptSetup)
	if err != nil {
		return nil, err
	}
	srv.listener = ln
	return srv, nil
}

func (s *Server) onAcceptSetup(ch *channel.Channel, errorCode int) {
	if errorCode != 0 || ch == nil {
		dialFailuresTotal.WithLabelValues("server", "accept").Inc()
		if s.opts.OnAcceptSetup != nil {
			s.opts.OnAcceptSetup(nil, errorCode)
		}
		return
	}

	ch.OnShutdown(func(shutdownErrorCode int) { s.onAcceptShutdown(ch, shutdownErrorCode) })

	conn, err := installStage(context.Background(), ch, s.opts.Handler, s.opts.Logger, true, s.opts.TLSOptions != nil, s.opts.MaxConcurrentStreams)
	if err != nil {
		dialFailuresTotal.WithLabelValues("server", "install").Inc()
		ch.Shutdown(int(httperr.CodeOf(err)))
		return
	}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		// An accept that loses the race with Release is reported to the
		// user the same way any other accept failure is, then torn down.
		if s.opts.OnAcceptSetup != nil {
			s.opts.OnAcceptSetup(nil, int(httperr.CodeConnectionClosed))
		}
		ch.Shutdown(int(httperr.CodeConnectionClosed))
		conn.Release()
		return
	}
	s.conns[ch] = conn
	s.mu.Unlock()

	if s.opts.OnAcceptSetup != nil {
		s.opts.OnAcceptSetup(conn, 0)
	}

	// A connection the user's callback never configured has no way to
	// reach a handler; tear it down rather than accept traffic it can
	// never dispatch. Goes through the channel, not conn.Release: the
	// connection is already in s.conns, so onAcceptShutdown owns dropping
	// its reference once the shutdown it triggers here comes back around.
	if conn.srv == nil || conn.srv.OnIncomingRequest == nil {
		Logger.Printf("[server] %v: OnAcceptSetup did not call ConfigureServer", httperr.ErrReactionRequired)
		ch.Shutdown(int(httperr.CodeReactionRequired))
	}
}

// onAcceptShutdown runs once per accepted channel, whether it closed on its
// own (remote disconnect, a single connection's install failing) or was
// force-closed by Release. Either way this is the one place that drops the
// connection's implicit initial reference; the map never held one of its
// own, only an observing pointer, so nothing else ever releases it.
func (s *Server) onAcceptShutdown(ch *channel.Channel, errorCode int) {
	s.mu.Lock()
	conn := s.conns[ch]
	delete(s.conns, ch)
	s.mu.Unlock()

	if conn != nil && conn.srv != nil && conn.srv.OnShutdown != nil {
		conn.srv.OnShutdown(conn, errorCode, conn.srv.UserData)
	}
	if s.opts.OnAcceptShutdown != nil {
		s.opts.OnAcceptShutdown(conn, errorCode)
	}
	if conn != nil {
		conn.Release()
	}

	s.maybeDestroyComplete()
}

// maybeDestroyComplete fires onDestroyComplete exactly once, the first time
// the server is shutting down with no live connections left. Both Release
// and onAcceptShutdown funnel through here, so neither path can observe the
// drained map and signal completion twice.
func (s *Server) maybeDestroyComplete() {
	s.mu.Lock()
	done := s.shuttingDown && len(s.conns) == 0
	fn := s.onDestroyComplete
	if done {
		s.onDestroyComplete = nil
	}
	s.mu.Unlock()

	if done && fn != nil {
		fn()
	}
}

// Release stops accepting new connections and shuts every accepted
// connection down. It is idempotent and does not block; onDestroyComplete
// runs once every connection this server ever accepted has finished
// shutting down, the only safe point after which no other Server method
// may be called.
//
// Shutting a connection down here goes straight through its channel, not
// through Connection.Release: the map entry is a non-owning observer, and a
// caller may be holding (and will eventually drop) its own reference to the
// same Connection. Releasing it here too would double-drop a refcount this
// server never owned.
func (s *Server) Release(onDestroyComplete func()) {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return
	}
	s.shuttingDown = true
	s.onDestroyComplete = onDestroyComplete
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	// Shut each connection's channel down with the real reason before
	// telling the listener to close: the listener's own internal shutdown
	// pass (gnetListener.Shutdown) force-closes every live channel it
	// still knows about with error code 0, and Shutdown only ever honors
	// the first caller. Calling it here first makes CodeConnectionClosed
	// win that race instead of losing to the listener's generic code.
	for _, c := range conns {
		c.GetChannel().Shutdown(int(httperr.CodeConnectionClosed))
	}

	s.listener.Shutdown(func() {})

	s.maybeDestroyComplete()
}
