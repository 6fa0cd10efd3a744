// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern. The gateway uses it to push
// session snapshots to any number of observers.
package hub

// Message is a pre-encoded payload to broadcast to clients.
type Message struct {
	Data []byte
}

// NewMessage wraps pre-encoded bytes for broadcast.
func NewMessage(data []byte) Message {
	return Message{Data: data}
}
