package ws

import "time"

// ConnInfo carries the handshake context of one subscriber, kept for the
// lifetime of the connection so disconnect/error events stay attributable.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
