package httpconn

import "context"

// ProxyRequestTransform rewrites an outbound request's headers before it is
// sent over a proxied connection, e.g. to add a Proxy-Authorization
// header or rewrite :authority. Connect stores it on the client
// Connection; the H1/H2 variants in this module do not call it.
type ProxyRequestTransform func(headers [][2]string) [][2]string

// ProxyOptions configures a client connection to dial through an HTTP
// proxy instead of directly to HostName:Port. Connecting through a proxy
// is delegated entirely to Connector: this subsystem only validates that
// one was supplied and forwards the call, keeping the connection bootstrap
// and proxy-negotiation concerns separate.
type ProxyOptions struct {
	HostName  string
	Port      uint16
	Connector ProxyConnector
}

// ProxyConnector is the out-of-scope collaborator that actually speaks
// whatever proxy handshake (CONNECT, SOCKS, ...) the deployment needs. It
// is a delegation point, not something this package implements.
type ProxyConnector interface {
	Connect(ctx context.Context, opts ClientOptions) error
}
