package ws

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// DefaultMaxFramePayloadSize is the default cap WebSocket.MaxFramePayloadSize
// is initialized to: a frame declaring a longer payload is rejected before
// any allocation is attempted, per spec §9's "Maximum frame size" note.
const DefaultMaxFramePayloadSize = int64(1) << 31

// WebSocket is a single client-side RFC6455 connection: the opening
// handshake, the frame codec, and the connection lifecycle state machine
// described in original_source/.../WebSocket.cpp, ported to Go's
// callback-and-method idiom instead of C++ member function pointers.
//
// A WebSocket is driven by its Transport's readiness callbacks and by host
// calls to Send/Close; it never blocks and never spawns its own goroutine.
// It is not safe for concurrent use, matching the single-threaded
// event-loop model the original targets.
type WebSocket struct {
	connection   ConnectionInfo
	newTransport func(ConnectionInfo) Transport
	transport    Transport

	state        InternalState
	websocketKey string
	handshake    *serverHandshakeReader
	protocol     string

	lastCloseCode   uint16
	lastCloseReason string

	fragmentActive  bool
	fragmentOpCode  OpCode
	fragmentPayload []byte

	// MaxFramePayloadSize bounds the payload length this connection will
	// accept from the peer. Frames declaring a longer length fail the
	// connection with ErrorFrameTooLarge rather than being allocated.
	MaxFramePayloadSize int64

	// OnOpen fires once the handshake completes successfully.
	OnOpen func()
	// OnMessage fires once per whole application message received.
	OnMessage func(Message)
	// OnError fires at most once, when the connection fails fatally.
	OnError func(Error)
	// OnClose fires at most once, when the connection finishes a clean
	// close. OnError and OnClose are mutually exclusive: exactly one of
	// them fires per connection, and neither fires more than once.
	OnClose func(code uint16, reason string, wasClean bool)

	log *logrus.Entry
}

// Create builds a WebSocket for info. newTransport is invoked exactly once,
// by Start, to obtain the Transport this connection will own for its
// lifetime, typically transport.Dial from package transport.
func Create(info ConnectionInfo, newTransport func(ConnectionInfo) Transport) *WebSocket {
	return &WebSocket{
		connection:          info,
		newTransport:        newTransport,
		state:               StateNotStarted,
		lastCloseCode:       uint16(StatusNoStatusRcvd),
		MaxFramePayloadSize: DefaultMaxFramePayloadSize,
		log:                 logrus.WithField("component", "ws"),
	}
}

// ReadyState reports the host-visible connection lifecycle stage.
func (w *WebSocket) ReadyState() ReadyState {
	return readyState(w.state)
}

// Protocol reports the subprotocol the server selected during the
// handshake, or "" if none of ConnectionInfo.Protocols was echoed back.
// It is only meaningful once ReadyState reports Open.
func (w *WebSocket) Protocol() string {
	return w.protocol
}

// Start begins connecting: it obtains a Transport from newTransport, wires
// its callbacks, and calls Transport.Connect. Start must be called exactly
// once.
func (w *WebSocket) Start() {
	if w.state != StateNotStarted {
		panic("ws: Start called more than once")
	}
	if w.transport != nil {
		panic("ws: Start called with a transport already present")
	}

	w.transport = w.newTransport(w.connection)

	w.transport.SetOnConnectionError(func() {
		w.log.Warn("transport reported a connection error")
		w.fatalError(ErrorCouldNotEstablishConnection, errors.New("transport connection error"))
	})
	w.transport.SetOnConnected(func() {
		if w.state != StateEstablishingProtocolConnection {
			return
		}
		w.state = StateSendingClientHandshake
		if err := w.sendClientHandshake(); err != nil {
			w.fatalError(ErrorCouldNotEstablishConnection, err)
			return
		}
		w.drainRead()
	})
	w.transport.SetOnReadyToRead(func() {
		w.drainRead()
	})

	w.state = StateEstablishingProtocolConnection
	w.transport.Connect(w.connection)
}

// Send transmits message as one unfragmented Text or Binary frame. Send may
// only be called while ReadyState reports Open.
func (w *WebSocket) Send(message Message) error {
	if w.state != StateOpen {
		return fmt.Errorf("ws: Send called in state %s", w.state)
	}
	if message.IsText && !utf8.Valid(message.Payload) {
		return fmt.Errorf("ws: text message payload is not valid utf-8")
	}
	op := OpBinary
	if message.IsText {
		op = OpText
	}
	return w.sendFrame(op, message.Payload, true)
}

// Close sends a Close frame carrying code and reason. Per RFC6455, the
// connection only reaches the Closing/Closed states once the server's own
// Close frame and subsequent EOF are observed; Close itself does not change
// ReadyState, matching original_source's close() which never touches
// m_state directly. Close may only be called while ReadyState reports Open.
func (w *WebSocket) Close(code uint16, reason string) error {
	if w.state != StateOpen {
		return fmt.Errorf("ws: Close called in state %s", w.state)
	}
	sc := StatusCode(code)
	if err := checkCloseFrameData(sc, reason); err != nil {
		return fmt.Errorf("ws: Close: %w", err)
	}
	payload := NewCloseFrameData(sc, reason)
	return w.sendFrame(OpClose, payload, true)
}

// drainRead is the engine's single read-side entry point: it is called
// after Connect succeeds and every time the transport signals
// OnReadyToRead. It mirrors original_source's drain_read(), draining every
// complete line or frame already buffered before giving back control —
// OnReadyToRead fires once per underlying read, which may have delivered
// more than one frame at a time.
func (w *WebSocket) drainRead() {
	for {
		if w.transport == nil {
			return
		}
		if w.transport.EOF() {
			w.state = StateClosed
			w.notifyClose(w.lastCloseCode, w.lastCloseReason, true)
			w.discardConnection()
			return
		}

		switch w.state {
		case StateWaitingForServerHandshake:
			if !w.transport.CanReadLine() {
				return
			}
			w.stepServerHandshake()
		case StateOpen, StateClosing:
			if !w.transport.CanRead() {
				return
			}
			w.readFrame()
		default:
			return
		}
	}
}

// sendClientHandshake builds and transmits the opening HTTP Upgrade
// request, then arms the restartable response parser.
func (w *WebSocket) sendClientHandshake() error {
	key, err := newHandshakeKey()
	if err != nil {
		return fmt.Errorf("ws: generating handshake key: %w", err)
	}
	w.websocketKey = key

	request, err := buildClientHandshake(w.connection, key)
	if err != nil {
		return fmt.Errorf("ws: building handshake request: %w", err)
	}

	w.handshake = newServerHandshakeReader(w.connection, key)
	w.state = StateWaitingForServerHandshake

	if !w.transport.Send([]byte(request)) {
		return errors.New("ws: transport rejected the handshake request")
	}
	return nil
}

// stepServerHandshake advances the response parser by whatever complete
// lines the transport currently has buffered.
func (w *WebSocket) stepServerHandshake() {
	done, err := w.handshake.step(w.transport)
	if err != nil {
		w.fatalError(ErrorConnectionUpgradeFailed, err)
		return
	}
	if !done {
		return
	}
	w.protocol = w.handshake.protocol
	w.state = StateOpen
	w.notifyOpen()
}

// readFrame decodes exactly one wire frame and dispatches it, mirroring
// original_source's read_frame().
func (w *WebSocket) readFrame() {
	head := w.transport.Read(2)
	if len(head) == 0 {
		w.state = StateClosed
		w.notifyClose(w.lastCloseCode, w.lastCloseReason, true)
		w.discardConnection()
		return
	}
	if len(head) != 2 {
		w.fatalError(ErrorServerClosedSocket, errors.New("truncated frame header"))
		return
	}
	if head[0]&0x70 != 0 {
		w.fatalError(ErrorProtocolViolation, fmt.Errorf("reserved bits set in frame header byte 0x%02x", head[0]))
		return
	}

	fin := head[0]&0x80 != 0
	opcode := OpCode(head[0] & 0x0f)
	masked := head[1]&0x80 != 0
	len7 := head[1] & 0x7f

	var length int64
	switch {
	case len7 <= 125:
		length = int64(len7)
	case len7 == 126:
		ext := w.transport.Read(2)
		if len(ext) != 2 {
			w.fatalError(ErrorServerClosedSocket, errors.New("truncated extended length"))
			return
		}
		length = int64(binary.BigEndian.Uint16(ext))
	default: // 127
		ext := w.transport.Read(8)
		if len(ext) != 8 {
			w.fatalError(ErrorServerClosedSocket, errors.New("truncated extended length"))
			return
		}
		full := binary.BigEndian.Uint64(ext)
		if full > uint64(1<<62) {
			w.fatalError(ErrorFrameTooLarge, fmt.Errorf("declared length %d overflows", full))
			return
		}
		length = int64(full)
	}

	if length > w.MaxFramePayloadSize {
		w.fatalError(ErrorFrameTooLarge, fmt.Errorf("declared length %d exceeds MaxFramePayloadSize %d", length, w.MaxFramePayloadSize))
		return
	}

	var maskKey [4]byte
	if masked {
		key := w.transport.Read(4)
		if len(key) != 4 {
			w.fatalError(ErrorServerClosedSocket, errors.New("truncated masking key"))
			return
		}
		copy(maskKey[:], key)
	}

	payload := make([]byte, 0, length)
	for int64(len(payload)) < length {
		chunk := w.transport.Read(int(length) - len(payload))
		if len(chunk) == 0 {
			w.fatalError(ErrorServerClosedSocket, fmt.Errorf("server disconnected after %d of %d payload bytes", len(payload), length))
			return
		}
		payload = append(payload, chunk...)
	}

	if masked {
		Cipher(payload, maskKey[:], 0)
	}

	w.dispatchFrame(fin, opcode, payload)
}

// dispatchFrame routes a fully decoded, unmasked frame by opcode.
func (w *WebSocket) dispatchFrame(fin bool, opcode OpCode, payload []byte) {
	switch opcode {
	case OpClose:
		if code, reason, hasCode := ParseCloseFrameData(payload); hasCode {
			if err := checkCloseFrameData(code, reason); err != nil {
				w.fatalError(ErrorProtocolViolation, fmt.Errorf("peer sent an illegal close frame: %w", err))
				return
			}
			w.lastCloseCode = uint16(code)
			w.lastCloseReason = reason
		}
		w.state = StateClosing

	case OpPing:
		if err := w.sendFrame(OpPong, payload, true); err != nil {
			w.log.WithError(err).Warn("failed to reply to ping")
		}

	case OpPong:
		// Nothing to do.

	case OpText, OpBinary:
		if !fin {
			w.beginFragment(opcode, payload)
			return
		}
		if w.fragmentActive {
			w.fatalError(ErrorProtocolViolation, fmt.Errorf("new %s frame while a fragmented message is in progress", opcode))
			return
		}
		w.deliverMessage(opcode, payload)

	case OpContinuation:
		w.continueFragment(fin, payload)

	default:
		w.log.WithField("opcode", opcode).Debug("ignoring unknown opcode")
	}
}

// beginFragment opens fragment reassembly for a non-final data frame.
func (w *WebSocket) beginFragment(opcode OpCode, payload []byte) {
	if w.fragmentActive {
		w.fatalError(ErrorProtocolViolation, fmt.Errorf("new %s frame while a fragmented message is in progress", opcode))
		return
	}
	w.fragmentActive = true
	w.fragmentOpCode = opcode
	w.fragmentPayload = append([]byte(nil), payload...)
}

// continueFragment appends a Continuation frame's payload to the open
// fragment, delivering the reassembled message once fin is set.
//
// This is a deliberate extension beyond the original source, which aborts
// (TODO()) on Continuation frames; spec §9 names reassembly as the
// preferred resolution over preserving that abort.
func (w *WebSocket) continueFragment(fin bool, payload []byte) {
	if !w.fragmentActive {
		w.fatalError(ErrorProtocolViolation, errors.New("continuation frame with no fragmented message in progress"))
		return
	}
	if int64(len(w.fragmentPayload)+len(payload)) > w.MaxFramePayloadSize {
		w.fatalError(ErrorFrameTooLarge, errors.New("reassembled message exceeds MaxFramePayloadSize"))
		return
	}
	w.fragmentPayload = append(w.fragmentPayload, payload...)
	if !fin {
		return
	}

	opcode := w.fragmentOpCode
	reassembled := w.fragmentPayload
	w.fragmentActive = false
	w.fragmentOpCode = 0
	w.fragmentPayload = nil

	w.deliverMessage(opcode, reassembled)
}

// deliverMessage validates (for Text) and hands a finished message to the
// host via OnMessage.
func (w *WebSocket) deliverMessage(opcode OpCode, payload []byte) {
	isText := opcode == OpText
	if isText && !utf8.Valid(payload) {
		w.fatalError(ErrorProtocolViolation, errors.New("text message is not valid utf-8"))
		return
	}
	w.notifyMessage(Message{Payload: payload, IsText: isText})
}

// sendFrame encodes and transmits one frame: header, mask-flagged length,
// a fresh masking key, and the masked payload. Outbound frames are always
// masked, per RFC6455 §5.1's requirement that clients mask all frames sent
// to the server.
func (w *WebSocket) sendFrame(op OpCode, payload []byte, fin bool) error {
	if w.state != StateOpen {
		return fmt.Errorf("ws: sendFrame called in state %s", w.state)
	}

	var head byte
	if fin {
		head |= 0x80
	}
	head |= byte(op) & 0x0f
	if !w.transport.Send([]byte{head}) {
		return errors.New("ws: transport send failed (frame header)")
	}

	n := int64(len(payload))
	switch {
	case n <= 125:
		if !w.transport.Send([]byte{0x80 | byte(n)}) {
			return errors.New("ws: transport send failed (length)")
		}
	case n <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0x80 | 126
		binary.BigEndian.PutUint16(buf[1:], uint16(n))
		if !w.transport.Send(buf) {
			return errors.New("ws: transport send failed (extended length)")
		}
	default:
		buf := make([]byte, 9)
		buf[0] = 0x80 | 127
		binary.BigEndian.PutUint64(buf[1:], uint64(n))
		if !w.transport.Send(buf) {
			return errors.New("ws: transport send failed (extended length)")
		}
	}

	mask := NewMask()
	if !w.transport.Send(mask[:]) {
		return errors.New("ws: transport send failed (mask)")
	}

	masked := make([]byte, n)
	copy(masked, payload)
	Cipher(masked, mask[:], 0)
	if !w.transport.Send(masked) {
		return errors.New("ws: transport send failed (payload)")
	}
	return nil
}

// fatalError transitions to Errored, notifies the host, and discards the
// transport. No further callback fires after this.
func (w *WebSocket) fatalError(kind ErrorKind, err error) {
	w.state = StateErrored
	w.log.WithError(err).WithField("kind", kind.String()).Error("websocket connection failed")
	w.notifyError(newError(kind, err))
	w.discardConnection()
}

// discardConnection detaches transport callbacks and releases the
// transport reference, mirroring original_source's discard_connection().
func (w *WebSocket) discardConnection() {
	if w.transport == nil {
		return
	}
	w.transport.SetOnConnected(nil)
	w.transport.SetOnReadyToRead(nil)
	w.transport.SetOnConnectionError(nil)
	w.transport.DiscardConnection()
	w.transport = nil
}

func (w *WebSocket) notifyOpen() {
	if w.OnOpen != nil {
		w.OnOpen()
	}
}

func (w *WebSocket) notifyMessage(m Message) {
	if w.OnMessage != nil {
		w.OnMessage(m)
	}
}

func (w *WebSocket) notifyError(e Error) {
	if w.OnError != nil {
		w.OnError(e)
	}
}

func (w *WebSocket) notifyClose(code uint16, reason string, wasClean bool) {
	if w.OnClose != nil {
		w.OnClose(code, reason, wasClean)
	}
}
