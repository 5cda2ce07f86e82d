package httpconn

import (
	"github.com/celeris-http/celeris/internal/channel"
	"github.com/celeris-http/celeris/internal/httperr"
	"github.com/celeris-http/celeris/internal/logsubject"
)

// Version identifies the HTTP protocol a Connection speaks.
type Version int

const (
	VersionUnknown Version = iota
	V1_0
	V1_1
	V2
)

func (v Version) String() string {
	switch v {
	case V1_0:
		return "HTTP/1.0"
	case V1_1:
		return "HTTP/1.1"
	case V2:
		return "HTTP/2"
	default:
		return "unknown"
	}
}

// ALPN wire values, compared byte-for-byte against NegotiatedProtocol().
var (
	alpnHTTP11 = []byte("http/1.1")
	alpnH2     = []byte("h2")
)

// ResolveVersion decides which protocol a freshly-installed stage should
// speak. Without TLS the answer is always HTTP/1.1; there is no h2c
// upgrade path here. With TLS, the decision rides on ALPN: the stage
// immediately upstream of the one just inserted is the TLS handshake
// stage, and its negotiated protocol name picks the version. An empty or
// unrecognized ALPN value is not an error: it folds back to HTTP/1.1 with
// a log line, matching a client or server that didn't advertise anything
// usable.
func ResolveVersion(stage *channel.Stage, tlsUsed bool) (Version, error) {
	if !tlsUsed {
		return V1_1, nil
	}

	upstream := stage.Channel().Upstream(stage)
	if upstream == nil || upstream.Handler() == nil {
		return VersionUnknown, httperr.New(httperr.CodeInvalidState, "no upstream TLS stage to query for ALPN")
	}

	negotiator, ok := upstream.Handler().(channel.ALPNNegotiator)
	if !ok {
		return VersionUnknown, httperr.New(httperr.CodeInvalidState, "upstream stage does not negotiate ALPN")
	}

	proto := negotiator.NegotiatedProtocol()
	switch {
	case string(proto) == string(alpnHTTP11):
		return V1_1, nil
	case string(proto) == string(alpnH2):
		return V2, nil
	default:
		Logger.Printf("[%s] unrecognized or empty ALPN protocol %q, falling back to HTTP/1.1", logsubject.Connection, proto)
		return V1_1, nil
	}
}
