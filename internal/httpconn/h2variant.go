package httpconn

import (
	"context"
	"log"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h2/stream"
	h2transport "github.com/celeris-http/celeris/internal/h2/transport"
)

// h2Variant adapts internal/h2/transport.Connection to the variant
// interface. Unlike HTTP/1.1, the wrapped type's HandleData takes a
// context.Context (it predates this package and was written to be driven
// directly by a server loop that had one on hand per call); this adapter
// stores the context captured at install time and threads it through,
// rather than changing the wrapped type's exported signature.
type h2Variant struct {
	ctx  context.Context
	conn *h2transport.Connection
}

// defaultMaxConcurrentStreams bounds inbound stream concurrency when a
// caller doesn't override it.
const defaultMaxConcurrentStreams = 250

func newH2Variant(ctx context.Context, transport channel.Transport, handler stream.Handler, logger *log.Logger, maxConcurrentStreams uint32) *h2Variant {
	if maxConcurrentStreams == 0 {
		maxConcurrentStreams = defaultMaxConcurrentStreams
	}
	return &h2Variant{
		ctx:  ctx,
		conn: h2transport.NewConnection(transport, handler, logger, maxConcurrentStreams),
	}
}

func (v *h2Variant) Close() error          { return v.conn.Close() }
func (v *h2Variant) IsOpen() bool          { return v.conn.IsOpen() }
func (v *h2Variant) UpdateWindow(n uint32) { v.conn.UpdateWindow(n) }
func (v *h2Variant) HandleData(b []byte) error {
	return v.conn.HandleData(v.ctx, b)
}
