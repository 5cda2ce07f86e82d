// Package logsubject defines the log tags operators use to filter
// connection-lifecycle logging by subsystem.
package logsubject

// Subject tags one log line's origin within the library.
type Subject string

// Log subjects, one per component that logs independently.
const (
	General           Subject = "general"
	Connection        Subject = "connection"
	Server            Subject = "server"
	Stream            Subject = "stream"
	ConnectionManager Subject = "connection-manager"
	Websocket         Subject = "websocket"
	WebsocketSetup    Subject = "websocket-setup"
)
