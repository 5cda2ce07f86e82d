package httpconn

import (
	"io"
	"log"
)

// Logger receives this package's diagnostic output (ALPN fallbacks,
// callback failures). Silent by default; assign a real logger to observe
// it. The Logger fields of ClientOptions and ServerOptions go to the
// protocol variants, not here.
var Logger = log.New(io.Discard, "", 0)
