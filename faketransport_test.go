package ws

import "bytes"

// fakeTransport is an in-memory Transport test double: it has no network,
// no goroutine, and gives tests full control over exactly when bytes
// arrive and when callbacks fire, so the state machine can be driven
// deterministically.
type fakeTransport struct {
	connectCalls int
	lastInfo     ConnectionInfo

	inbox []byte
	eof   bool

	outbox   []byte
	sendFail bool

	discarded bool

	onConnected       func()
	onReadyToRead     func()
	onConnectionError func()
}

func (t *fakeTransport) Connect(info ConnectionInfo) {
	t.connectCalls++
	t.lastInfo = info
}

// Connected simulates the transport succeeding at establishing the byte
// stream, firing OnConnected.
func (t *fakeTransport) Connected() {
	if t.onConnected != nil {
		t.onConnected()
	}
}

// ConnectionError simulates the transport failing to connect.
func (t *fakeTransport) ConnectionError() {
	if t.onConnectionError != nil {
		t.onConnectionError()
	}
}

// Feed appends p to the transport's inbound buffer and fires
// OnReadyToRead, simulating bytes arriving from the peer.
func (t *fakeTransport) Feed(p []byte) {
	t.inbox = append(t.inbox, p...)
	if t.onReadyToRead != nil {
		t.onReadyToRead()
	}
}

// FeedEOF marks the stream as closed by the peer and fires OnReadyToRead.
func (t *fakeTransport) FeedEOF() {
	t.eof = true
	if t.onReadyToRead != nil {
		t.onReadyToRead()
	}
}

func (t *fakeTransport) Send(p []byte) bool {
	if t.sendFail {
		return false
	}
	t.outbox = append(t.outbox, p...)
	return true
}

func (t *fakeTransport) Read(n int) []byte {
	if n > len(t.inbox) {
		n = len(t.inbox)
	}
	out := append([]byte(nil), t.inbox[:n]...)
	t.inbox = t.inbox[n:]
	return out
}

func (t *fakeTransport) ReadLine(max int) string {
	idx := bytes.Index(t.inbox, []byte("\r\n"))
	if idx < 0 {
		return ""
	}
	cut := idx
	if cut > max {
		cut = max
	}
	line := string(t.inbox[:cut])
	t.inbox = t.inbox[idx+2:]
	return line
}

func (t *fakeTransport) CanRead() bool {
	return len(t.inbox) > 0
}

func (t *fakeTransport) CanReadLine() bool {
	return bytes.Index(t.inbox, []byte("\r\n")) >= 0
}

func (t *fakeTransport) EOF() bool {
	return t.eof && len(t.inbox) == 0
}

func (t *fakeTransport) DiscardConnection() {
	t.discarded = true
}

func (t *fakeTransport) SetOnConnected(f func())       { t.onConnected = f }
func (t *fakeTransport) SetOnReadyToRead(f func())     { t.onReadyToRead = f }
func (t *fakeTransport) SetOnConnectionError(f func()) { t.onConnectionError = f }
