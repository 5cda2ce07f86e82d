package celeris

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h2/stream"
	"github.com/celeris-http/celeris/internal/httpconn"
)

// Server represents a server instance supporting HTTP/1.1 and/or HTTP/2.
type Server struct {
	config  Config
	handler Handler
	srv     *httpconn.Server
}

// New creates a new Server with the provided configuration.
func New(config Config) *Server {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	return &Server{
		config: config,
	}
}

// NewWithDefaults creates a new Server with default configuration.
func NewWithDefaults() *Server {
	return New(DefaultConfig())
}

// Handler sets the request handler and returns the server for method chaining.
func (s *Server) Handler(handler Handler) *Server {
	s.handler = handler
	return s
}

// ListenAndServe sets the handler and starts the server.
func (s *Server) ListenAndServe(handler Handler) error {
	s.handler = handler
	return s.Start()
}

// Start begins accepting HTTP/1.1 and/or HTTP/2 connections.
func (s *Server) Start() error {
	if s.handler == nil {
		return fmt.Errorf("handler not set")
	}

	endpoint, err := parseEndpoint(s.config.Addr)
	if err != nil {
		return err
	}

	streamHandler := &streamHandlerAdapter{
		handler: s.handler,
	}

	var tlsOpts *channel.TLSOptions
	if s.config.TLSConfig != nil {
		tlsOpts = &channel.TLSOptions{Config: s.config.TLSConfig}
	}

	srv, err := httpconn.NewServer(httpconn.ServerOptions{
		Endpoint: endpoint,
		SocketOptions: channel.SocketOptions{
			Multicore:    s.config.Multicore,
			NumEventLoop: s.config.NumEventLoop,
			ReusePort:    s.config.ReusePort,
		},
		TLSOptions:           tlsOpts,
		Handler:              streamHandler,
		Logger:               s.config.Logger,
		MaxConcurrentStreams: s.config.MaxConcurrentStreams,
		OnAcceptSetup:        s.onAcceptSetup,
	})
	if err != nil {
		return err
	}

	s.srv = srv
	return nil
}

// onAcceptSetup configures every accepted connection before httpconn will
// let it carry traffic. The actual per-request dispatch never runs through
// OnIncomingRequest: that callback only gates "this connection has been
// configured". Requests reach streamHandler directly, since it was already
// bound as the connection's stream.Handler at dial/accept time.
func (s *Server) onAcceptSetup(conn *httpconn.Connection, errorCode int) {
	if errorCode != 0 || conn == nil {
		return
	}

	_ = httpconn.ConfigureServer(conn, httpconn.ServerConfigureOptions{
		OnIncomingRequest: func(*httpconn.Connection, any) {},
	})
}

// Stop releases the server: every live connection is shut down, and Stop
// waits until they have all finished or ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}

	done := make(chan struct{})
	s.srv.Release(func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseEndpoint splits a "host:port" listen address into a channel.Endpoint,
// defaulting the host to all interfaces when omitted (":8080" style addrs).
func parseEndpoint(addr string) (channel.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return channel.Endpoint{}, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return channel.Endpoint{}, fmt.Errorf("invalid listen port in %q: %w", addr, err)
	}
	return channel.Endpoint{Host: host, Port: uint16(port)}, nil
}

type streamHandlerAdapter struct {
	handler     Handler
	processor   *stream.Processor
	currentConn stream.ResponseWriter
}

func (a *streamHandlerAdapter) SetProcessor(p *stream.Processor) {
	a.processor = p
}

func (a *streamHandlerAdapter) SetConnection(conn stream.ResponseWriter) {
	a.currentConn = conn
}

func (a *streamHandlerAdapter) HandleStream(ctx context.Context, s *stream.Stream) error {
	writeResponse := func(streamID uint32, status int, headers [][2]string, body []byte) error {
		if s.ResponseWriter == nil {
			return fmt.Errorf("no response writer available")
		}

		return s.ResponseWriter.WriteResponse(streamID, status, headers, body)
	}

	pushPromise := func(streamID uint32, path string, headers [][2]string) error {
		if a.processor != nil {
			return a.processor.PushPromise(streamID, path, headers)
		}
		return fmt.Errorf("no processor available for push promise")
	}

	celerisCtx := newContext(ctx, s, writeResponse)
	celerisCtx.pushPromise = pushPromise

	return a.handler.ServeHTTP2(celerisCtx)
}
