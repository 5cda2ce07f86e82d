package celeris

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/httpconn"
)

// ClientConfig holds the configuration for a Client's outgoing connections.
type ClientConfig struct {
	Addr      string      // "host:port" to dial
	TLSConfig *tls.Config // nil dials plaintext HTTP/1.1; set enables TLS + ALPN dispatch
	Logger    *log.Logger
}

// Client dials a single remote endpoint and hands every accepted connection
// to a Handler, the same interface a Server dispatches to: a celeris
// connection is bidirectional once HTTP/2 is negotiated, so a client and a
// server push-stream handler share the same shape.
type Client struct {
	config  ClientConfig
	handler Handler
}

// NewClient creates a Client with the given configuration.
func NewClient(config ClientConfig) *Client {
	return &Client{config: config}
}

// Handler sets the handler invoked for streams the remote side pushes or
// replies with, and returns the Client for method chaining.
func (c *Client) Handler(handler Handler) *Client {
	c.handler = handler
	return c
}

// Connection is the handle returned by Connect: a thin wrapper narrowing
// httpconn.Connection to the lifecycle operations a celeris client needs.
type Connection struct {
	conn *httpconn.Connection
}

// Version reports the negotiated protocol version.
func (c *Connection) Version() httpconn.Version {
	return c.conn.Version()
}

// Close releases the caller's reference to the connection, tearing it down
// once no other reference remains.
func (c *Connection) Close() {
	c.conn.Release()
}

// Connect dials c.config.Addr and blocks until the connection is set up or
// setup fails. Version dispatch rides entirely on TLS ALPN: without
// TLSConfig the connection always speaks HTTP/1.1.
func (c *Client) Connect(ctx context.Context) (*Connection, error) {
	if c.handler == nil {
		return nil, fmt.Errorf("handler not set")
	}

	host, port, err := parseHostPort(c.config.Addr)
	if err != nil {
		return nil, err
	}

	streamHandler := &streamHandlerAdapter{handler: c.handler}

	var tlsOpts *channel.TLSOptions
	if c.config.TLSConfig != nil {
		tlsOpts = &channel.TLSOptions{Config: c.config.TLSConfig}
	}

	type result struct {
		conn *httpconn.Connection
		code int
	}
	done := make(chan result, 1)

	err = httpconn.Connect(ctx, httpconn.ClientOptions{
		HostName:   host,
		Port:       port,
		TLSOptions: tlsOpts,
		Handler:    streamHandler,
		Logger:     c.config.Logger,
		OnSetup: func(conn *httpconn.Connection, errorCode int, _ any) {
			done <- result{conn: conn, code: errorCode}
		},
	})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-done:
		if r.code != 0 {
			return nil, fmt.Errorf("celeris: connect failed with error code %d", r.code)
		}
		return &Connection{conn: r.conn}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// parseHostPort splits a "host:port" dial address into a hostname and
// numeric port.
func parseHostPort(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid dial address %q: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid dial port in %q: %w", addr, err)
	}
	return host, uint16(port), nil
}
