package channel

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"
)

// gnetTransport adapts a gnet.Conn to the Transport interface.
type gnetTransport struct {
	c gnet.Conn
}

func (t gnetTransport) RemoteAddr() net.Addr        { return t.c.RemoteAddr() }
func (t gnetTransport) LocalAddr() net.Addr         { return t.c.LocalAddr() }
func (t gnetTransport) Write(p []byte) (int, error) { return t.c.Write(p) }
func (t gnetTransport) Close() error                { return t.c.Close() }

// silentGnetLogger discards gnet's own internal logging to keep the hot
// path free of I/O.
type silentGnetLogger struct{}

func (silentGnetLogger) Debugf(string, ...any) {}
func (silentGnetLogger) Infof(string, ...any)  {}
func (silentGnetLogger) Warnf(string, ...any)  {}
func (silentGnetLogger) Errorf(string, ...any) {}
func (silentGnetLogger) Fatalf(string, ...any) {}

// gnetListener is the plaintext server transport: a gnet engine whose
// OnOpen/OnTraffic/OnClose events are bridged onto *Channel. It hands
// callers a *Channel rather than coupling directly to a specific protocol
// connection type.
type gnetListener struct {
	gnet.BuiltinEventEngine

	onAccept SetupFunc
	engine   gnet.Engine

	mu      sync.Mutex
	byConn  map[gnet.Conn]*Channel
	live    int32
	closing atomic.Bool
	onDone  func()
}

func listenPlaintext(endpoint Endpoint, opts SocketOptions, onAccept SetupFunc) (Listener, error) {
	gl := &gnetListener{
		onAccept: onAccept,
		byConn:   make(map[gnet.Conn]*Channel),
	}

	addr := "tcp://" + dialAddr(endpoint.Host, endpoint.Port)
	gnetOpts := []gnet.Option{
		gnet.WithMulticore(opts.Multicore),
		gnet.WithReusePort(opts.ReusePort),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithLogger(silentGnetLogger{}),
	}
	if opts.NumEventLoop > 0 {
		gnetOpts = append(gnetOpts, gnet.WithNumEventLoop(opts.NumEventLoop))
	}
	go func() {
		_ = gnet.Run(gl, addr, gnetOpts...)
	}()

	return gl, nil
}

func (gl *gnetListener) OnBoot(eng gnet.Engine) gnet.Action {
	gl.engine = eng
	return gnet.None
}

func (gl *gnetListener) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	ch := newChannel(gnetTransport{c})
	c.SetContext(ch)

	gl.mu.Lock()
	gl.byConn[c] = ch
	gl.live++
	gl.mu.Unlock()

	ch.OnShutdown(func(int) { gl.decrementLive(c) })

	gl.onAccept(ch, 0)
	return nil, gnet.None
}

func (gl *gnetListener) OnTraffic(c gnet.Conn) gnet.Action {
	data, _ := c.Next(-1)
	if len(data) == 0 {
		return gnet.None
	}

	ch, _ := c.Context().(*Channel)
	if ch == nil {
		return gnet.Close
	}

	tail := ch.Tail()
	if tail == nil {
		return gnet.None
	}
	bh, ok := tail.Handler().(ByteHandler)
	if !ok {
		return gnet.None
	}
	if err := bh.HandleData(data); err != nil {
		return gnet.Close
	}
	return gnet.None
}

func (gl *gnetListener) OnClose(c gnet.Conn, _ error) gnet.Action {
	if ch, ok := c.Context().(*Channel); ok {
		ch.notifyClosed(0)
	}
	return gnet.None
}

func (gl *gnetListener) decrementLive(c gnet.Conn) {
	gl.mu.Lock()
	delete(gl.byConn, c)
	gl.live--
	live := gl.live
	closing := gl.closing.Load()
	onDone := gl.onDone
	gl.mu.Unlock()

	if closing && live == 0 && onDone != nil {
		onDone()
	}
}

func (gl *gnetListener) Shutdown(onDestroyComplete func()) {
	gl.closing.Store(true)

	gl.mu.Lock()
	gl.onDone = onDestroyComplete
	conns := make([]gnet.Conn, 0, len(gl.byConn))
	for c := range gl.byConn {
		conns = append(conns, c)
	}
	live := gl.live
	gl.mu.Unlock()

	for _, c := range conns {
		if ch, ok := c.Context().(*Channel); ok {
			ch.Shutdown(0)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = gl.engine.Stop(stopCtx)

	if live == 0 && onDestroyComplete != nil {
		onDestroyComplete()
	}
}
