package channel

import (
	"context"
	"crypto/tls"
	"sync/atomic"
	"time"
)

// SocketOptions mirrors the handful of socket-level knobs the rest of this
// subsystem cares about. Multicore/NumEventLoop/ReusePort only affect the
// plaintext accept path (gnetListener); a TLS listener runs one goroutine
// per accepted connection and ignores them.
type SocketOptions struct {
	ConnectTimeout time.Duration
	KeepAlive      time.Duration

	Multicore    bool
	NumEventLoop int
	ReusePort    bool
}

// TLSOptions carries the TLS configuration for a channel that negotiates
// ALPN. Config.NextProtos should list "h2" before "http/1.1" for a client
// that prefers HTTP/2; a server advertises whichever protocols it supports.
type TLSOptions struct {
	Config     *tls.Config
	ServerName string
}

// Endpoint names a listen address.
type Endpoint struct {
	Host string
	Port uint16
}

// SetupFunc is the callback a dial or accept delivers its result through:
// either errorCode != 0 and ch == nil, or errorCode == 0 and ch != nil.
type SetupFunc func(ch *Channel, errorCode int)

// Listener owns a listening socket and the accepted channels spawned from
// it until they are individually shut down.
type Listener interface {
	// Shutdown closes the listening socket. onDestroyComplete runs once
	// every channel this listener ever handed out has finished shutting
	// down, the only safe point for the caller to free its own state.
	Shutdown(onDestroyComplete func())
}

// Dialer is the process-wide dispatch table of transport-dial primitives
// this subsystem calls through. It exists so tests can inject a fake
// transport without touching real sockets; production code uses
// DefaultDialer. Expressed as an interface rather than a struct of function
// pointers so a test fake is just another value satisfying the same shape.
type Dialer interface {
	DialSocket(ctx context.Context, host string, port uint16, opts SocketOptions, setup SetupFunc) error
	DialTLSSocket(ctx context.Context, host string, port uint16, opts SocketOptions, tlsOpts TLSOptions, setup SetupFunc) error
	Listen(ctx context.Context, endpoint Endpoint, opts SocketOptions, tlsOpts *TLSOptions, onAccept SetupFunc) (Listener, error)
}

// defaultDialer wires Dialer to the production transports: gnet for the
// plaintext accept path, net+crypto/tls for every dial and every TLS
// accept.
type defaultDialer struct{}

func (defaultDialer) DialSocket(ctx context.Context, host string, port uint16, opts SocketOptions, setup SetupFunc) error {
	return dialPlaintext(ctx, host, port, opts, setup)
}

func (defaultDialer) DialTLSSocket(ctx context.Context, host string, port uint16, opts SocketOptions, tlsOpts TLSOptions, setup SetupFunc) error {
	return dialTLS(ctx, host, port, opts, tlsOpts, setup)
}

func (defaultDialer) Listen(ctx context.Context, endpoint Endpoint, opts SocketOptions, tlsOpts *TLSOptions, onAccept SetupFunc) (Listener, error) {
	return listen(ctx, endpoint, opts, tlsOpts, onAccept)
}

// DefaultDialer is the production Dialer. ClientOptions/ServerOptions
// default to it when no Dialer is supplied.
var DefaultDialer Dialer = defaultDialer{}

var current atomic.Pointer[Dialer]

func init() {
	var d Dialer = DefaultDialer
	current.Store(&d)
}

// CurrentDialer returns the process-wide Dialer currently installed.
// Replaceable as a single pointer write via SetDefaultDialer; beyond that
// swap, no further synchronization is provided: tests install a fake
// dialer before starting the system under test and do not mutate it
// concurrently with use.
func CurrentDialer() Dialer {
	return *current.Load()
}

// SetDefaultDialer atomically replaces the process-wide default Dialer.
func SetDefaultDialer(d Dialer) {
	current.Store(&d)
}
