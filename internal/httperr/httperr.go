// Package httperr defines the stable error-code namespace shared by the
// connection lifecycle subsystem. Codes lie in the 1000-1499 block, grouped
// by area with gaps between groups; their values are implementation
// defined but stable within a major version. Callers should match
// on the sentinel, never the numeric code or the message text.
package httperr

import (
	"errors"
	"fmt"
)

// Code identifies one error within the HTTP error namespace.
type Code int

// Error codes reserved for the connection lifecycle subsystem and its
// collaborators. Ranges are left between groups for future additions
// without renumbering existing codes.
const (
	CodeInvalidArgument Code = 1000 + iota
	CodeInvalidState
	CodeUnknown
)

const (
	CodeHeaderValidation Code = 1100 + iota
	CodeMethodValidation
	CodePathValidation
)

const (
	CodeConnectionClosed Code = 1200 + iota
	CodeSwitchedProtocols
	CodeUnsupportedProtocol
	CodeReactionRequired
	CodeCallbackFailure
	CodeServerClosed
	CodeProtocolError
	CodeStreamClosed
	CodeInvalidFrameSize
)

// Connection-manager lifecycle codes, reserved so a future pool can raise
// them through the existing callback plumbing even though pooling itself
// is out of scope here.
const (
	CodeConnManagerShuttingDown Code = 1300 + iota
	CodeConnManagerUnexpectedChannelFailure
	CodeConnManagerConnectionAcquireFailure
)

// Websocket upgrade failure codes, reserved; websocket upgrade is an
// external collaborator and is not implemented in this subsystem.
const (
	CodeWebsocketUpgradeFailure Code = 1400 + iota
	CodeWebsocketSetupFailure
)

// Error wraps a Code with an optional descriptive message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("httperr: code %d", e.Code)
	}
	return fmt.Sprintf("httperr: %s (code %d)", e.Msg, e.Code)
}

func New(code Code, msg string) *Error { return &Error{Code: code, Msg: msg} }

// Sentinel errors for the argument, lifecycle, and protocol-dispatch
// taxonomy. Compare with errors.Is, not string equality.
var (
	ErrInvalidArgument     = New(CodeInvalidArgument, "invalid argument")
	ErrInvalidState        = New(CodeInvalidState, "invalid state")
	ErrUnknown             = New(CodeUnknown, "unknown error")
	ErrConnectionClosed    = New(CodeConnectionClosed, "connection closed")
	ErrSwitchedProtocols   = New(CodeSwitchedProtocols, "switched protocols")
	ErrUnsupportedProtocol = New(CodeUnsupportedProtocol, "unsupported protocol")
	ErrReactionRequired    = New(CodeReactionRequired, "reaction required")
	ErrCallbackFailure     = New(CodeCallbackFailure, "callback failure")
	ErrServerClosed        = New(CodeServerClosed, "server closed")
	ErrProtocolError       = New(CodeProtocolError, "protocol error")
	ErrStreamClosed        = New(CodeStreamClosed, "stream closed")
	ErrInvalidFrameSize    = New(CodeInvalidFrameSize, "invalid frame size")
)

// Is implements errors.Is support by code, so wrapped copies with a
// different Msg still compare equal to a sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the Code carried by err, or CodeUnknown for errors from
// outside this namespace. Used where an error must cross a callback
// boundary as a plain integer code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
