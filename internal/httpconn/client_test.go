package httpconn

import (
	"context"
	"crypto/tls"
	"testing"

	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/h2/stream"
	"github.com/celeris-http/celeris/internal/httperr"
)

var tlsOptionsStub = channel.TLSOptions{Config: &tls.Config{}}

func noopHandler() stream.Handler {
	return stream.HandlerFunc(func(context.Context, *stream.Stream) error { return nil })
}

func TestConnect_ArgumentErrorsAreSynchronous(t *testing.T) {
	cases := []struct {
		name string
		opts ClientOptions
	}{
		{"missing host", ClientOptions{Handler: noopHandler(), OnSetup: func(*Connection, int, any) {}}},
		{"missing OnSetup", ClientOptions{HostName: "example.com", Handler: noopHandler()}},
		{"missing handler", ClientOptions{HostName: "example.com", OnSetup: func(*Connection, int, any) {}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Dialer = &fakeDialer{}
			err := Connect(context.Background(), tc.opts)
			if err == nil {
				t.Fatal("expected a synchronous argument error")
			}
			if !isHTTPErr(err, httperr.CodeInvalidArgument) {
				t.Fatalf("expected CodeInvalidArgument, got %v", err)
			}
		})
	}
}

func isHTTPErr(err error, code httperr.Code) bool {
	he, ok := err.(*httperr.Error)
	return ok && he.Code == code
}

func TestConnect_PlaintextSetupAlwaysResolvesV1_1(t *testing.T) {
	var got *Connection
	var errCode int
	done := make(chan struct{})

	err := Connect(context.Background(), ClientOptions{
		Dialer:   &fakeDialer{},
		HostName: "example.com",
		Port:     80,
		Handler:  noopHandler(),
		OnSetup: func(conn *Connection, code int, _ any) {
			got, errCode = conn, code
			close(done)
		},
	})
	if err != nil {
		t.Fatalf("Connect returned synchronous error: %v", err)
	}
	<-done
	if errCode != 0 {
		t.Fatalf("expected errCode 0, got %d", errCode)
	}
	if got == nil {
		t.Fatal("expected a non-nil connection")
	}
	if got.Version() != V1_1 {
		t.Fatalf("expected V1_1 without TLS, got %v", got.Version())
	}
}

func TestConnect_TLSSetupResolvesH2FromALPN(t *testing.T) {
	var got *Connection
	err := Connect(context.Background(), ClientOptions{
		Dialer:     &fakeDialer{alpn: "h2"},
		HostName:   "example.com",
		Port:       443,
		TLSOptions: &tlsOptionsStub,
		Handler:    noopHandler(),
		OnSetup: func(conn *Connection, code int, _ any) {
			if code != 0 {
				t.Fatalf("unexpected setup error code %d", code)
			}
			got = conn
		},
	})
	if err != nil {
		t.Fatalf("Connect returned synchronous error: %v", err)
	}
	if got == nil || got.Version() != V2 {
		t.Fatalf("expected V2 from h2 ALPN, got %+v", got)
	}
}

// S2: the dial primitive itself failing to start means Connect returns the
// failure synchronously and no callback ever fires.
func TestConnect_DialInitiationFailureIsSynchronous(t *testing.T) {
	setupCalls := 0
	err := Connect(context.Background(), ClientOptions{
		Dialer:   &initFailDialer{},
		HostName: "example.com",
		Handler:  noopHandler(),
		OnSetup:  func(*Connection, int, any) { setupCalls++ },
	})
	if err == nil {
		t.Fatal("expected Connect to return the dial initiation error")
	}
	if setupCalls != 0 {
		t.Fatalf("expected OnSetup not to fire, got %d calls", setupCalls)
	}
}

func TestConnect_DialFailureDeliversThroughOnSetup(t *testing.T) {
	calls := 0
	var lastCode int
	shutdownCalls := 0
	err := Connect(context.Background(), ClientOptions{
		Dialer:   &fakeDialer{errOnDial: true},
		HostName: "example.com",
		Handler:  noopHandler(),
		OnSetup: func(conn *Connection, code int, _ any) {
			calls++
			lastCode = code
			if conn != nil {
				t.Fatal("expected nil connection on dial failure")
			}
		},
		OnShutdown: func(*Connection, int, any) { shutdownCalls++ },
	})
	if err != nil {
		t.Fatalf("Connect returned synchronous error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one OnSetup call, got %d", calls)
	}
	if lastCode == 0 {
		t.Fatal("expected a non-zero error code")
	}
	// S3: a setup-callback error must not also deliver a shutdown callback.
	if shutdownCalls != 0 {
		t.Fatalf("expected OnShutdown not to fire after a setup failure, got %d calls", shutdownCalls)
	}
}

// S1: a clean dial followed by the caller releasing its reference delivers
// exactly one OnShutdown call with error code 0.
func TestConnect_ReleaseAfterCleanSetupDeliversShutdownWithZero(t *testing.T) {
	var setupConn *Connection
	shutdownCalls := 0
	var shutdownCode int
	err := Connect(context.Background(), ClientOptions{
		Dialer:   &fakeDialer{},
		HostName: "example.com",
		Port:     80,
		Handler:  noopHandler(),
		OnSetup: func(conn *Connection, code int, _ any) {
			setupConn = conn
		},
		OnShutdown: func(_ *Connection, code int, _ any) {
			shutdownCalls++
			shutdownCode = code
		},
	})
	if err != nil {
		t.Fatalf("Connect returned synchronous error: %v", err)
	}
	if setupConn == nil {
		t.Fatal("expected OnSetup to deliver a connection")
	}
	if shutdownCalls != 0 {
		t.Fatal("expected no shutdown callback before Release")
	}

	setupConn.Release()

	if shutdownCalls != 1 {
		t.Fatalf("expected exactly one OnShutdown call after Release, got %d", shutdownCalls)
	}
	if shutdownCode != 0 {
		t.Fatalf("expected error code 0 for a caller-initiated release, got %d", shutdownCode)
	}
}

func TestConnect_ProxyOptionsWithoutConnectorIsArgumentError(t *testing.T) {
	err := Connect(context.Background(), ClientOptions{
		Dialer:       &fakeDialer{},
		HostName:     "example.com",
		Handler:      noopHandler(),
		OnSetup:      func(*Connection, int, any) {},
		ProxyOptions: &ProxyOptions{HostName: "proxy.example.com"},
	})
	if !isHTTPErr(err, httperr.CodeInvalidArgument) {
		t.Fatalf("expected CodeInvalidArgument, got %v", err)
	}
}

func TestConnect_ProxyOptionsDelegatesToConnector(t *testing.T) {
	called := false
	connector := proxyConnectorFunc(func(ctx context.Context, opts ClientOptions) error {
		called = true
		return nil
	})
	err := Connect(context.Background(), ClientOptions{
		Dialer:       &fakeDialer{},
		HostName:     "example.com",
		Handler:      noopHandler(),
		OnSetup:      func(*Connection, int, any) {},
		ProxyOptions: &ProxyOptions{HostName: "proxy.example.com", Connector: connector},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected the proxy connector to be invoked")
	}
}

type proxyConnectorFunc func(ctx context.Context, opts ClientOptions) error

func (f proxyConnectorFunc) Connect(ctx context.Context, opts ClientOptions) error {
	return f(ctx, opts)
}
