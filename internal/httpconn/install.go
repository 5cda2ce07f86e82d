package httpconn

import (
	"context"
	"log"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h2/stream"
)

// installStage allocates a stage on ch, resolves the protocol version, and
// binds a variant-backed Connection as that stage's handler. Follows the
// seven-step protocol exactly:
//  1. ch.NewStage(), an unbound stage.
//  2. ch.InsertTail(stage).
//  3. ResolveVersion(stage, tlsUsed).
//  4. construct the resolved variant.
//  5. stage.Bind(connection).
//  6. ch.AcquireHold().
//  7. return connection.
//
// On failure before step 6, the stage is removed and any partially
// constructed handler is left to become unreachable (its Close, if it
// already acquired one, is not called; nothing was bound to trigger it).
// The channel-hold is only released on failure paths that got past step 6,
// which installStage itself never does (AcquireHold is the last step).
func installStage(ctx context.Context, ch *channel.Channel, handler stream.Handler, logger *log.Logger, isServer, tlsUsed bool, maxConcurrentStreams uint32) (*Connection, error) {
	if logger == nil {
		logger = Logger
	}
	stage := ch.NewStage()
	ch.InsertTail(stage)

	version, err := ResolveVersion(stage, tlsUsed)
	if err != nil {
		ch.RemoveStage(stage)
		return nil, err
	}

	var v variant
	switch version {
	case V2:
		v = newH2Variant(ctx, ch.Transport(), handler, logger, maxConcurrentStreams)
	case V1_1, V1_0:
		v = newH1Variant(ctx, ch.Transport(), handler, logger)
	default:
		// Unreachable in practice: ResolveVersion never returns
		// VersionUnknown without also returning a non-nil error, and a
		// caller forcing an unsupported version is a programmer error.
		ch.RemoveStage(stage)
		panic("httpconn: installStage resolved an unsupported version")
	}

	conn := newConnection(version, v, stage, isServer)
	stage.Bind(conn)
	ch.AcquireHold()
	return conn, nil
}
