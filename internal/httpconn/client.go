package httpconn

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h2/stream"
	"github.com/celeris-http/celeris/internal/httperr"
)

var clientTracer = otel.Tracer("celeris-http/httpconn")

// ClientSetupFunc is called exactly once per Connect call: either with a
// non-nil Connection and errorCode == 0, or with a nil Connection and a
// non-zero errorCode. It is the only path through which Connect reports
// success or failure, except for the errors Connect returns synchronously
// (argument errors and a failure to initiate the dial).
type ClientSetupFunc func(conn *Connection, errorCode int, userData any)

// ClientShutdownFunc is called at most once, when a successfully set-up
// client connection's channel finishes shutting down.
type ClientShutdownFunc func(conn *Connection, errorCode int, userData any)

// ClientOptions configures Connect.
type ClientOptions struct {
	Dialer        channel.Dialer
	HostName      string
	Port          uint16
	SocketOptions channel.SocketOptions
	TLSOptions    *channel.TLSOptions
	InitialWindow uint32

	Handler stream.Handler
	Logger  *log.Logger

	OnSetup    ClientSetupFunc
	OnShutdown ClientShutdownFunc
	UserData   any

	ProxyOptions          *ProxyOptions
	ProxyRequestTransform ProxyRequestTransform

	MaxConcurrentStreams uint32
}

// clientRecord is the per-connect bookkeeping kept alive from dial
// initiation until the shutdown callback fires. It owns the one-shot
// OnSetup/OnShutdown delivery state; nothing else may call either.
type clientRecord struct {
	opts       ClientOptions
	connection *Connection
	span       trace.Span
}

// Connect dials HostName:Port (directly, or through opts.ProxyOptions.Connector
// when set) and installs the resolved HTTP variant once the transport is
// ready. Argument errors and dial-initiation failures are returned
// synchronously, and OnSetup is then not called; every other outcome
// (transport failure, protocol-dispatch failure, or eventual shutdown) is
// delivered exactly once through OnSetup/OnShutdown.
func Connect(ctx context.Context, opts ClientOptions) error {
	if opts.Dialer == nil {
		opts.Dialer = channel.CurrentDialer()
	}
	if opts.HostName == "" {
		return httperr.New(httperr.CodeInvalidArgument, "ClientOptions.HostName is required")
	}
	if opts.OnSetup == nil {
		return httperr.New(httperr.CodeInvalidArgument, "ClientOptions.OnSetup is required")
	}
	if opts.Handler == nil {
		return httperr.New(httperr.CodeInvalidArgument, "ClientOptions.Handler is required")
	}

	if opts.ProxyOptions != nil {
		if opts.ProxyOptions.Connector == nil {
			return httperr.New(httperr.CodeInvalidArgument, "ProxyOptions.Connector is required when ProxyOptions is set")
		}
		return opts.ProxyOptions.Connector.Connect(ctx, opts)
	}

	spanCtx, span := clientTracer.Start(ctx, "httpconn.connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("server.address", opts.HostName),
			attribute.Int("server.port", int(opts.Port)),
			attribute.Bool("tls", opts.TLSOptions != nil),
		),
	)

	rec := &clientRecord{opts: opts, span: span}

	setup := func(ch *channel.Channel, errorCode int) {
		rec.onSetup(spanCtx, ch, errorCode)
	}

	var err error
	if opts.TLSOptions != nil {
		err = opts.Dialer.DialTLSSocket(spanCtx, opts.HostName, opts.Port, opts.SocketOptions, *opts.TLSOptions, setup)
	} else {
		err = opts.Dialer.DialSocket(spanCtx, opts.HostName, opts.Port, opts.SocketOptions, setup)
	}
	if err != nil {
		// The dial never got off the ground: no channel exists, no callback
		// will ever fire, and the caller hears about it right here.
		dialFailuresTotal.WithLabelValues("client", "dial").Inc()
		span.SetStatus(codes.Error, "dial initiation failed")
		span.RecordError(err)
		span.End()
		return err
	}
	return nil
}

func (rec *clientRecord) onSetup(ctx context.Context, ch *channel.Channel, errorCode int) {
	if errorCode != 0 || ch == nil {
		dialFailuresTotal.WithLabelValues("client", "dial").Inc()
		rec.span.SetStatus(codes.Error, "dial failed")
		rec.span.SetAttributes(attribute.Int("error.code", errorCode))
		rec.span.End()
		rec.opts.OnSetup(nil, errorCode, rec.opts.UserData)
		rec.opts.OnSetup = nil
		return
	}

	// Wired before installStage so a shutdown triggered by install failure
	// (below) still reaches the caller through the shutdown path, exactly
	// as it would for a failure discovered later in the connection's life.
	ch.OnShutdown(func(shutdownErrorCode int) { rec.onShutdown(shutdownErrorCode) })

	conn, err := installStage(ctx, ch, rec.opts.Handler, rec.opts.Logger, false, rec.opts.TLSOptions != nil, rec.opts.MaxConcurrentStreams)
	if err != nil {
		dialFailuresTotal.WithLabelValues("client", "install").Inc()
		rec.span.SetStatus(codes.Error, "protocol install failed")
		rec.span.RecordError(err)
		rec.span.End()
		ch.Shutdown(int(httperr.CodeOf(err)))
		return
	}

	conn.client = &clientData{
		ProxyRequestTransform: rec.opts.ProxyRequestTransform,
		UserData:              rec.opts.UserData,
	}
	rec.connection = conn

	rec.span.SetAttributes(attribute.String("http.version", conn.Version().String()))
	rec.span.SetStatus(codes.Ok, "")
	rec.span.End()

	rec.opts.OnSetup(conn, 0, rec.opts.UserData)
	rec.opts.OnSetup = nil
}

// onShutdown is the single sink guaranteeing exactly-once failure
// notification: if OnSetup was never delivered (install failed, or the
// channel died before install completed), it fires now with a synthesized
// error instead of leaving the caller waiting forever.
func (rec *clientRecord) onShutdown(errorCode int) {
	if rec.opts.OnSetup != nil {
		if errorCode == 0 {
			errorCode = int(httperr.CodeUnknown)
		}
		dialFailuresTotal.WithLabelValues("client", "dial").Inc()
		rec.span.SetStatus(codes.Error, "channel closed before setup completed")
		rec.span.SetAttributes(attribute.Int("error.code", errorCode))
		rec.span.End()
		rec.opts.OnSetup(nil, errorCode, rec.opts.UserData)
		rec.opts.OnSetup = nil
		return
	}
	if rec.opts.OnShutdown != nil {
		rec.opts.OnShutdown(rec.connection, errorCode, rec.opts.UserData)
	}
}
