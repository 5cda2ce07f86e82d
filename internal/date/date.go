// Package date provides a cached, thread-safe HTTP date header value so
// the response hot path never calls time.Now().Format() per request.
package date

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var (
	once    sync.Once
	current atomic.Pointer[[]byte]
)

// update refreshes the cached date bytes. http.TimeFormat is the RFC 7231
// IMF-fixdate form ("GMT" suffix); time.RFC1123 over a UTC time would
// render "UTC", which is not a valid HTTP date.
func update() {
	b := []byte(time.Now().UTC().Format(http.TimeFormat))
	current.Store(&b)
}

func start() {
	update()
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			update()
		}
	}()
}

// Current returns the cached date header bytes, starting the background
// refresher on first use. Callers must not modify the returned slice.
func Current() []byte {
	once.Do(start)
	return *current.Load()
}
