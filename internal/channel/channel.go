// Package channel implements the generic byte-channel pipeline the
// connection lifecycle subsystem is spliced into: an ordered list of
// stages bound to a single event-loop thread, plus the reference-counted
// "hold" that keeps a channel alive while something still needs it.
//
// Two concrete transports satisfy Channel's needs: a gnet-backed one for
// the plaintext fast path (internal/channel/gnet_channel.go) and a
// net/crypto-tls-backed one, driven by a dedicated goroutine, for TLS
// (internal/channel/net_channel.go). Both are internal collaborators;
// callers only ever see *Channel and *Stage.
package channel

import (
	"net"
	"sync"
	"sync/atomic"
)

// Handler is the per-stage object bound into a Channel. It carries no
// required methods: a stage may hold a raw transport handler (which
// implements ByteHandler) or a TLS handler (which implements
// ALPNNegotiator), or both.
type Handler interface{}

// ByteHandler is implemented by stages that consume raw inbound bytes,
// i.e. the HTTP/1.1 and HTTP/2 protocol handlers.
type ByteHandler interface {
	HandleData(data []byte) error
}

// ALPNNegotiator is implemented by a TLS stage's handler once its
// handshake has completed; it exposes the negotiated next-protocol.
type ALPNNegotiator interface {
	NegotiatedProtocol() []byte
}

// Stage is one position in a Channel's pipeline, binding one Handler.
type Stage struct {
	ch      *Channel
	handler Handler
}

// Channel returns the channel this stage belongs to.
func (s *Stage) Channel() *Channel { return s.ch }

// Handler returns the handler currently bound to this stage, or nil.
func (s *Stage) Handler() Handler { return s.handler }

// Bind attaches h to this stage. Called once per stage: by the stage
// installer after inserting the stage, or by the TLS dial and accept paths
// before inserting their TLS stage.
func (s *Stage) Bind(h Handler) { s.handler = h }

// Transport is the minimal surface a Channel needs from whatever socket or
// TLS primitive is underneath it.
type Transport interface {
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
	Write(p []byte) (int, error)
	Close() error
}

// Channel is an ordered pipeline of stages pinned to one event-loop thread
// for its entire life: all of a channel's callbacks run on that one thread
// (a goroutine, for the TLS transport, or a gnet event-loop slot for the
// plaintext transport) and never reenter concurrently.
type Channel struct {
	mu           sync.Mutex
	stages       []*Stage
	holds        int32
	closing      bool
	shutdownCode int
	closed       bool
	exitCode     int
	listeners    []func(errorCode int)
	transport    Transport
}

func newChannel(t Transport) *Channel {
	return &Channel{transport: t, holds: 1}
}

// NewChannel constructs a Channel bound to an arbitrary Transport. The
// production dialers in this package use their own transport-specific
// constructors; NewChannel exists for other Dialer implementations,
// including test fakes, that need to hand a *Channel to a SetupFunc
// without going through gnet or net/crypto-tls.
func NewChannel(t Transport) *Channel {
	return newChannel(t)
}

// Transport exposes the underlying socket/TLS primitive, e.g. for
// RemoteAddr()/LocalAddr() accessors on the public connection façade.
func (ch *Channel) Transport() Transport { return ch.transport }

// NewStage allocates a new, unbound stage. It is not part of the pipeline
// until InsertTail is called.
func (ch *Channel) NewStage() *Stage {
	return &Stage{ch: ch}
}

// InsertTail appends s to the end of the pipeline.
func (ch *Channel) InsertTail(s *Stage) {
	ch.mu.Lock()
	ch.stages = append(ch.stages, s)
	ch.mu.Unlock()
}

// RemoveStage removes s from the pipeline. Used only on installer failure
// paths to unwind a partially completed insert.
func (ch *Channel) RemoveStage(s *Stage) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, st := range ch.stages {
		if st == s {
			ch.stages = append(ch.stages[:i], ch.stages[i+1:]...)
			return
		}
	}
}

// Upstream returns the stage immediately before s in the pipeline, or nil
// if s is the first stage (or not found).
func (ch *Channel) Upstream(s *Stage) *Stage {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, st := range ch.stages {
		if st == s {
			if i == 0 {
				return nil
			}
			return ch.stages[i-1]
		}
	}
	return nil
}

// Tail returns the last stage in the pipeline, or nil if it is empty.
func (ch *Channel) Tail() *Stage {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.stages) == 0 {
		return nil
	}
	return ch.stages[len(ch.stages)-1]
}

// AcquireHold takes one channel-hold, preventing teardown while held.
func (ch *Channel) AcquireHold() {
	atomic.AddInt32(&ch.holds, 1)
}

// ReleaseHold drops one channel-hold. Callers must release in exactly one
// place per acquire; a release past zero is a fatal bug.
func (ch *Channel) ReleaseHold() {
	if atomic.AddInt32(&ch.holds, -1) < 0 {
		panic("channel: released more holds than were acquired")
	}
}

// OnShutdown registers fn to run exactly once when the channel has fully
// shut down. If the channel has already shut down, fn runs inline. Safe to
// call from any goroutine.
func (ch *Channel) OnShutdown(fn func(errorCode int)) {
	ch.mu.Lock()
	if ch.closed {
		code := ch.exitCode
		ch.mu.Unlock()
		fn(code)
		return
	}
	ch.listeners = append(ch.listeners, fn)
	ch.mu.Unlock()
}

// Shutdown requests the channel close with the given reason. The first
// caller's errorCode wins; Shutdown is idempotent after that, and a close
// already in flight does not restart or re-signal. The latched code takes
// priority over whatever the transport binding later observes on its own:
// a caller that requests a specific reason gets that reason delivered to
// OnShutdown listeners, not whatever the socket happens to report once it
// actually closes.
func (ch *Channel) Shutdown(errorCode int) {
	ch.mu.Lock()
	if ch.closing {
		ch.mu.Unlock()
		return
	}
	ch.closing = true
	ch.shutdownCode = errorCode
	ch.mu.Unlock()
	_ = ch.transport.Close()
}

// notifyClosed is invoked by the transport binding once the underlying
// socket has actually finished closing, exactly once, never from inside
// the channel's own lock. If a local Shutdown call is what triggered the
// close, its errorCode wins over the transport-observed one; otherwise
// (a remote-initiated close) the transport's own code is authoritative.
func (ch *Channel) notifyClosed(errorCode int) {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	if ch.closing {
		errorCode = ch.shutdownCode
	}
	ch.closed = true
	ch.exitCode = errorCode
	listeners := ch.listeners
	ch.listeners = nil
	ch.mu.Unlock()

	for _, fn := range listeners {
		fn(errorCode)
	}
}

// NotifyTransportClosed reports that the Transport bound to this channel has
// finished closing. The gnet and net/crypto-tls bindings in this package
// call notifyClosed directly since they share the package; a Transport
// supplied through a custom Dialer (including test fakes built on
// NewChannel) has no other way to report that its close has completed, so
// this is the exported equivalent.
func (ch *Channel) NotifyTransportClosed(errorCode int) {
	ch.notifyClosed(errorCode)
}

// IsShutDown reports whether the channel has already fully shut down.
func (ch *Channel) IsShutDown() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}
