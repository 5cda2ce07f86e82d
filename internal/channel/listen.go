package channel

import "context"

// listen is the Dialer.Listen entry point: a plaintext endpoint is served
// by the gnet-backed listener (the high-throughput path), while a TLS
// endpoint is served by the goroutine-per-accept listener, since the
// blocking TLS handshake can't run on gnet's non-blocking loop.
func listen(_ context.Context, endpoint Endpoint, opts SocketOptions, tlsOpts *TLSOptions, onAccept SetupFunc) (Listener, error) {
	if tlsOpts != nil {
		return listenTLS(endpoint, opts, tlsOpts, onAccept)
	}
	return listenPlaintext(endpoint, opts, onAccept)
}
