package channel

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
)

// netChannel binds a Channel to a blocking net.Conn (optionally wrapping a
// *tls.Conn), driven by one dedicated goroutine. This is the transport used
// for every client dial and for any server accept that negotiates TLS,
// since TLS's blocking handshake can't be hosted on gnet's non-blocking
// event loop. The dedicated goroutine gives the same "pinned to one
// event-loop thread, callbacks never reenter" guarantee gnet gives the
// plaintext server path, just expressed as a goroutine instead of an event
// loop slot, the same accept-then-"go c.serve()" shape net/http uses.
type netChannel struct {
	ch   *Channel
	conn net.Conn
}

func newNetChannel(conn net.Conn) *netChannel {
	return &netChannel{ch: newChannel(netTransport{conn}), conn: conn}
}

type netTransport struct{ net.Conn }

// readLoop delivers inbound bytes to the pipeline's tail stage until the
// connection closes, then notifies the channel's shutdown listeners
// exactly once. It must run on the channel's dedicated goroutine, after
// the setup callback that installed the stage has already returned, so
// that setup-before-data-before-shutdown holds without extra locking.
func (nc *netChannel) readLoop() {
	buf := make([]byte, 32*1024)
	errorCode := 0
	for {
		n, err := nc.conn.Read(buf)
		if n > 0 {
			if tail := nc.ch.Tail(); tail != nil {
				if bh, ok := tail.Handler().(ByteHandler); ok {
					if herr := bh.HandleData(buf[:n]); herr != nil {
						errorCode = 1
						_ = nc.conn.Close()
						break
					}
				}
			}
		}
		if err != nil {
			if err != context.Canceled {
				errorCode = 1
			}
			break
		}
	}
	nc.ch.notifyClosed(errorCode)
}

func dialAddr(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// dialPlaintext is Dialer.DialSocket's production implementation: the
// default, non-TLS transport.
func dialPlaintext(ctx context.Context, host string, port uint16, opts SocketOptions, setup SetupFunc) error {
	go func() {
		d := net.Dialer{Timeout: opts.ConnectTimeout}
		conn, err := d.DialContext(ctx, "tcp", dialAddr(host, port))
		if err != nil {
			setup(nil, 1)
			return
		}
		nc := newNetChannel(conn)
		setup(nc.ch, 0)
		nc.readLoop()
	}()
	return nil
}

// dialTLS is Dialer.DialTLSSocket's production implementation. The TLS handshake
// runs to completion before setup is invoked, so ALPN negotiation output
// is already available when the version-dispatch resolver queries it.
func dialTLS(ctx context.Context, host string, port uint16, opts SocketOptions, tlsOpts TLSOptions, setup SetupFunc) error {
	go func() {
		d := net.Dialer{Timeout: opts.ConnectTimeout}
		raw, err := d.DialContext(ctx, "tcp", dialAddr(host, port))
		if err != nil {
			setup(nil, 1)
			return
		}

		cfg := tlsOpts.Config
		if cfg == nil {
			cfg = &tls.Config{}
		}
		cfg = cfg.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = tlsOpts.ServerName
			if cfg.ServerName == "" {
				cfg.ServerName = host
			}
		}

		tlsConn := tls.Client(raw, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			setup(nil, 1)
			return
		}

		nc := newNetChannel(tlsConn)
		tlsStage := nc.ch.NewStage()
		tlsStage.Bind(&tlsALPNHandler{conn: tlsConn})
		nc.ch.InsertTail(tlsStage)

		setup(nc.ch, 0)
		nc.readLoop()
	}()
	return nil
}

// tlsALPNHandler adapts a handshaked *tls.Conn to channel.ALPNNegotiator.
type tlsALPNHandler struct {
	conn *tls.Conn
}

func (h *tlsALPNHandler) NegotiatedProtocol() []byte {
	return []byte(h.conn.ConnectionState().NegotiatedProtocol)
}

// netListener implements Listener for the TLS-accepting server path: a
// net.Listener plus per-accept goroutines, each handshaking before
// delivering its channel through onAccept.
type netListener struct {
	ln       net.Listener
	tlsOpts  *TLSOptions
	onAccept SetupFunc

	mu      sync.Mutex
	live    int
	closing bool
	onDone  func()
}

func listenTLS(endpoint Endpoint, opts SocketOptions, tlsOpts *TLSOptions, onAccept SetupFunc) (Listener, error) {
	ln, err := net.Listen("tcp", dialAddr(endpoint.Host, endpoint.Port))
	if err != nil {
		return nil, err
	}
	nl := &netListener{ln: ln, tlsOpts: tlsOpts, onAccept: onAccept}
	go nl.acceptLoop()
	return nl, nil
}

func (nl *netListener) acceptLoop() {
	for {
		conn, err := nl.ln.Accept()
		if err != nil {
			return
		}
		nl.mu.Lock()
		nl.live++
		nl.mu.Unlock()

		go nl.handleAccept(conn)
	}
}

func (nl *netListener) handleAccept(conn net.Conn) {
	cfg := nl.tlsOpts.Config
	if cfg == nil {
		cfg = &tls.Config{}
	}
	tlsConn := tls.Server(conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		_ = conn.Close()
		nl.decrementLive()
		nl.onAccept(nil, 1)
		return
	}

	nc := newNetChannel(tlsConn)
	tlsStage := nc.ch.NewStage()
	tlsStage.Bind(&tlsALPNHandler{conn: tlsConn})
	nc.ch.InsertTail(tlsStage)

	nc.ch.OnShutdown(func(int) { nl.decrementLive() })

	nl.onAccept(nc.ch, 0)
	nc.readLoop()
}

func (nl *netListener) decrementLive() {
	nl.mu.Lock()
	nl.live--
	live := nl.live
	closing := nl.closing
	onDone := nl.onDone
	nl.mu.Unlock()

	if closing && live == 0 && onDone != nil {
		onDone()
	}
}

func (nl *netListener) Shutdown(onDestroyComplete func()) {
	_ = nl.ln.Close()

	nl.mu.Lock()
	nl.closing = true
	nl.onDone = onDestroyComplete
	live := nl.live
	nl.mu.Unlock()

	if live == 0 && onDestroyComplete != nil {
		onDestroyComplete()
	}
}
