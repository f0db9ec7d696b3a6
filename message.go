package ws

// Message is a whole application-level WebSocket message delivered to, or
// accepted from, the host. Text messages carry UTF-8 bytes; Binary messages
// carry opaque bytes.
type Message struct {
	Payload []byte
	IsText  bool
}

// NewTextMessage creates a text message, copying s into the message payload.
func NewTextMessage(s string) Message {
	p := make([]byte, len(s))
	copy(p, s)
	return Message{Payload: p, IsText: true}
}

// NewBinaryMessage creates a binary message. p is retained, not copied.
func NewBinaryMessage(p []byte) Message {
	return Message{Payload: p, IsText: false}
}
