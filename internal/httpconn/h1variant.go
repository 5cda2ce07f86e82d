package httpconn

import (
	"context"
	"log"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h1"
	"github.com/celeris-http/celeris/internal/h2/stream"
)

// h1Variant adapts internal/h1.Connection to the variant interface. Its
// method set already matches variant exactly (HTTP/1.1 has no connection
// context to thread through HandleData), so this type only exists to give
// the wrapped value a name distinct from the H2 adapter.
type h1Variant struct {
	conn *h1.Connection
}

func newH1Variant(ctx context.Context, transport channel.Transport, handler stream.Handler, logger *log.Logger) *h1Variant {
	return &h1Variant{conn: h1.NewConnection(ctx, transport, handler, logger)}
}

func (v *h1Variant) Close() error              { return v.conn.Close() }
func (v *h1Variant) IsOpen() bool              { return v.conn.IsOpen() }
func (v *h1Variant) UpdateWindow(n uint32)     { v.conn.UpdateWindow(n) }
func (v *h1Variant) HandleData(b []byte) error { return v.conn.HandleData(b) }
