package httpconn

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/celeris-http/celeris/internal/channel"
)

// fakeTransport is an in-memory channel.Transport that records writes and
// closes instead of touching a real socket. Its Close reports completion
// back to the owning channel synchronously, the way the gnet and
// net/crypto-tls bindings eventually do from their own goroutines, so a
// test driving ch.Shutdown observes the same OnShutdown delivery a real
// connection would.
type fakeTransport struct {
	mu     sync.Mutex
	closed bool
	writes [][]byte

	ch *channel.Channel // set by newFakeChannel once the channel exists
}

func (t *fakeTransport) RemoteAddr() net.Addr { return &net.TCPAddr{} }
func (t *fakeTransport) LocalAddr() net.Addr  { return &net.TCPAddr{} }

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]byte(nil), p...)
	t.writes = append(t.writes, cp)
	return len(p), nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	ch := t.ch
	t.mu.Unlock()
	if !alreadyClosed && ch != nil {
		ch.NotifyTransportClosed(0)
	}
	return nil
}

// fakeALPNStage adapts a fixed protocol name to channel.ALPNNegotiator, so
// tests can force ResolveVersion down the TLS/H2 branch without a real
// TLS handshake.
type fakeALPNStage struct {
	proto string
}

func (f *fakeALPNStage) NegotiatedProtocol() []byte { return []byte(f.proto) }

// fakeDialer implements channel.Dialer entirely in memory: dials and
// accepts complete synchronously, on the calling goroutine, against a
// fakeTransport. errOnDial, when set, makes every dial/accept fail instead.
type fakeDialer struct {
	alpn      string // "" means non-TLS dial/accept
	errOnDial bool

	mu        sync.Mutex
	listeners []*fakeListener
}

type fakeListener struct {
	shutdown bool
}

func (fl *fakeListener) Shutdown(onDestroyComplete func()) {
	fl.shutdown = true
	if onDestroyComplete != nil {
		onDestroyComplete()
	}
}

func newFakeChannel(alpn string) *channel.Channel {
	ft := &fakeTransport{}
	ch := channel.NewChannel(ft)
	ft.ch = ch
	if alpn != "" {
		tlsStage := ch.NewStage()
		tlsStage.Bind(&fakeALPNStage{proto: alpn})
		ch.InsertTail(tlsStage)
	}
	return ch
}

func (d *fakeDialer) DialSocket(_ context.Context, _ string, _ uint16, _ channel.SocketOptions, setup channel.SetupFunc) error {
	if d.errOnDial {
		setup(nil, 1)
		return nil
	}
	setup(newFakeChannel(""), 0)
	return nil
}

func (d *fakeDialer) DialTLSSocket(_ context.Context, _ string, _ uint16, _ channel.SocketOptions, _ channel.TLSOptions, setup channel.SetupFunc) error {
	if d.errOnDial {
		setup(nil, 1)
		return nil
	}
	setup(newFakeChannel(d.alpn), 0)
	return nil
}

func (d *fakeDialer) Listen(_ context.Context, _ channel.Endpoint, _ channel.SocketOptions, tlsOpts *channel.TLSOptions, onAccept channel.SetupFunc) (channel.Listener, error) {
	fl := &fakeListener{}
	d.mu.Lock()
	d.listeners = append(d.listeners, fl)
	d.mu.Unlock()

	alpn := ""
	if tlsOpts != nil {
		alpn = d.alpn
	}
	if d.errOnDial {
		onAccept(nil, 1)
	} else {
		onAccept(newFakeChannel(alpn), 0)
	}
	return fl, nil
}

// initFailDialer is a Dialer whose dial calls fail to initiate at all:
// they return an error synchronously and never invoke the setup callback.
type initFailDialer struct{}

func (initFailDialer) DialSocket(context.Context, string, uint16, channel.SocketOptions, channel.SetupFunc) error {
	return errors.New("no event loop available")
}

func (initFailDialer) DialTLSSocket(context.Context, string, uint16, channel.SocketOptions, channel.TLSOptions, channel.SetupFunc) error {
	return errors.New("no event loop available")
}

func (initFailDialer) Listen(context.Context, channel.Endpoint, channel.SocketOptions, *channel.TLSOptions, channel.SetupFunc) (channel.Listener, error) {
	return nil, errors.New("no event loop available")
}

// acceptOnDemandDialer is a Dialer whose Listen call does not accept
// anything until the test explicitly calls trigger, letting a test observe
// a Server between construction and its first accepted connection.
type acceptOnDemandDialer struct {
	alpn     string
	onAccept channel.SetupFunc
	listener *fakeListener
}

func (d *acceptOnDemandDialer) DialSocket(context.Context, string, uint16, channel.SocketOptions, channel.SetupFunc) error {
	panic("not used")
}

func (d *acceptOnDemandDialer) DialTLSSocket(context.Context, string, uint16, channel.SocketOptions, channel.TLSOptions, channel.SetupFunc) error {
	panic("not used")
}

func (d *acceptOnDemandDialer) Listen(_ context.Context, _ channel.Endpoint, _ channel.SocketOptions, _ *channel.TLSOptions, onAccept channel.SetupFunc) (channel.Listener, error) {
	d.onAccept = onAccept
	d.listener = &fakeListener{}
	return d.listener, nil
}

func (d *acceptOnDemandDialer) trigger(errorCode int) {
	if errorCode != 0 {
		d.onAccept(nil, errorCode)
		return
	}
	d.onAccept(newFakeChannel(d.alpn), 0)
}
