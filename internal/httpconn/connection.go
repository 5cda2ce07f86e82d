package httpconn

import (
	"net"
	"sync/atomic"

	"github.com/celeris-http/celeris/internal/channel"
)

// variant is the protocol-specific half of a Connection: the dispatch
// target for HTTP/1.1 versus HTTP/2.
type variant interface {
	Close() error
	IsOpen() bool
	UpdateWindow(n uint32)
	HandleData(data []byte) error
}

// lifecycle states, tracked purely for test assertions, never exposed as
// public API. The user only ever observes "alive" (via callbacks) and
// "releasing" (Release() returns immediately, without waiting).
const (
	stateConstructing int32 = iota
	stateAlive
	stateReleasing
	stateGone
)

// clientData holds the client-only bookkeeping a Connection carries once
// installStage succeeds on a dial.
type clientData struct {
	ProxyRequestTransform ProxyRequestTransform
	UserData              any
}

// serverData holds the server-only bookkeeping a Connection carries once
// ConfigureServer has been called on it.
type serverData struct {
	OnIncomingRequest func(conn *Connection, userData any)
	OnShutdown        func(conn *Connection, errorCode int, userData any)
	UserData          any
	configured        bool
}

// Connection is the user-facing handle on one HTTP connection, client or
// server, HTTP/1.1 or HTTP/2. It holds exactly one channel-hold on the
// underlying channel.Channel; releasing the user's last logical reference
// shuts the channel down and releases that hold, in that order.
type Connection struct {
	refs  int32
	state atomic.Int32

	version Version
	variant variant
	stage   *channel.Stage
	server  bool

	client *clientData
	srv    *serverData
}

func newConnection(version Version, v variant, stage *channel.Stage, isServer bool) *Connection {
	c := &Connection{
		refs:    1,
		version: version,
		variant: v,
		stage:   stage,
		server:  isServer,
	}
	c.state.Store(stateAlive)
	openConnections.Inc()
	return c
}

func (c *Connection) roleLabel() string {
	if c.server {
		return "server"
	}
	return "client"
}

// Acquire adds one logical reference. Acquiring after the last reference
// has already dropped to zero is a programmer error and panics, matching
// the "double-acquire-after-zero" invariant.
func (c *Connection) Acquire() {
	if atomic.AddInt32(&c.refs, 1) <= 1 {
		panic("httpconn: Acquire called on a connection with no remaining references")
	}
}

// Release drops one logical reference. When the last reference drops, the
// channel is shut down and its channel-hold released, in that order, and
// the Connection must not be touched again. A release past zero is a
// fatal programmer error and panics.
func (c *Connection) Release() {
	remaining := atomic.AddInt32(&c.refs, -1)
	switch {
	case remaining > 0:
		return
	case remaining == 0:
		c.state.Store(stateReleasing)
		ch := c.stage.Channel()
		ch.Shutdown(0)
		ch.ReleaseHold()
		c.state.Store(stateGone)
		openConnections.Dec()
		connectionReleasesTotal.WithLabelValues(c.roleLabel()).Inc()
	default:
		panic("httpconn: Release called more times than Acquire")
	}
}

// Close tears down the protocol-specific variant without waiting for the
// channel shutdown sequence; callers normally prefer Release.
func (c *Connection) Close() error {
	return c.variant.Close()
}

// IsOpen reports whether the connection still accepts traffic.
func (c *Connection) IsOpen() bool {
	return c.variant.IsOpen()
}

// Version reports the negotiated protocol version.
func (c *Connection) Version() Version {
	return c.version
}

// GetChannel returns the underlying channel.
func (c *Connection) GetChannel() *channel.Channel {
	return c.stage.Channel()
}

// RemoteAddr returns the peer's address, for access logging and the like.
// Valid while the caller holds a reference.
func (c *Connection) RemoteAddr() net.Addr {
	return c.stage.Channel().Transport().RemoteAddr()
}

// LocalAddr returns the local end's address.
func (c *Connection) LocalAddr() net.Addr {
	return c.stage.Channel().Transport().LocalAddr()
}

// UpdateWindow forwards a flow-control window increment to the variant;
// both the HTTP/1.1 and the HTTP/2 variant ignore it.
func (c *Connection) UpdateWindow(n uint32) {
	c.variant.UpdateWindow(n)
}

// HandleData implements channel.ByteHandler, so a Connection can be bound
// directly to a stage as its handler.
func (c *Connection) HandleData(data []byte) error {
	return c.variant.HandleData(data)
}
