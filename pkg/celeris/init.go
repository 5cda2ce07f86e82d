package celeris

import (
	"sync/atomic"

	"github.com/celeris-http/celeris/internal/channel"
)

// initialized guards celeris's process-wide state: the default
// channel.Dialer and the Prometheus collectors registered at package load.
// Go's garbage collector makes an explicit init/cleanup pair unnecessary
// for memory, but the public surface keeps it: callers that reset
// process-wide state (tests swapping in a fake Dialer, long-running hosts
// recycling it) still need a defined point to do so.
var initialized atomic.Bool

// Init marks celeris's process-wide state as active. Calling it twice
// without an intervening CleanUp is a programmer error and panics.
func Init() {
	if !initialized.CompareAndSwap(false, true) {
		panic("celeris: Init called twice without an intervening CleanUp")
	}
}

// CleanUp resets celeris's process-wide state, restoring the default
// channel.Dialer. Calling it without a prior Init is a programmer error
// and panics; calling it when nothing was ever dialed is harmless.
func CleanUp() {
	if !initialized.CompareAndSwap(true, false) {
		panic("celeris: CleanUp called without a prior Init")
	}
	channel.SetDefaultDialer(channel.DefaultDialer)
}
