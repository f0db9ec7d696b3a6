package ws

// InternalState is the WebSocket engine's private lifecycle state. Host
// code never observes this directly; it sees the coarser ReadyState
// instead (see ReadyState below).
type InternalState uint8

const (
	StateNotStarted InternalState = iota
	StateEstablishingProtocolConnection
	StateSendingClientHandshake
	StateWaitingForServerHandshake
	StateOpen
	StateClosing
	StateClosed
	StateErrored
)

func (s InternalState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateEstablishingProtocolConnection:
		return "establishing-protocol-connection"
	case StateSendingClientHandshake:
		return "sending-client-handshake"
	case StateWaitingForServerHandshake:
		return "waiting-for-server-handshake"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ReadyState is the host-visible, coarse-grained connection lifecycle,
// modelled after the browser WebSocket readyState property.
type ReadyState uint8

const (
	Connecting ReadyState = iota
	Open
	Closing
	Closed
)

func (rs ReadyState) String() string {
	switch rs {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// readyState derives the host-visible ReadyState from the internal state.
func readyState(s InternalState) ReadyState {
	switch s {
	case StateNotStarted, StateEstablishingProtocolConnection,
		StateSendingClientHandshake, StateWaitingForServerHandshake:
		return Connecting
	case StateOpen:
		return Open
	case StateClosing:
		return Closing
	case StateClosed, StateErrored:
		return Closed
	default:
		return Closed
	}
}
