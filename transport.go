package ws

// Transport is the minimal byte-stream capability the WebSocket engine
// consumes. Implementations wrap an actual TCP or TLS socket (see package
// transport for a concrete one); the engine itself never dials, never
// blocks, and never looks past this interface.
//
// Read primitives are readiness-driven: the engine only calls Read or
// ReadLine immediately after observing the corresponding CanRead/
// CanReadLine predicate report true. Implementations are not required to
// support being called otherwise.
type Transport interface {
	// Connect initiates the underlying byte stream for info. It must
	// eventually invoke exactly one of the OnConnected or
	// OnConnectionError callbacks.
	Connect(info ConnectionInfo)

	// Send attempts a best-effort write of the entire slice and reports
	// whether it succeeded.
	Send(p []byte) bool

	// Read reads up to n bytes, returning fewer (including zero, at EOF)
	// if fewer are available without blocking.
	Read(n int) []byte

	// ReadLine reads one CRLF-terminated line, with the terminator
	// stripped. It must only be called when CanReadLine reports true.
	ReadLine(max int) string

	// CanRead reports whether at least one byte is available to Read
	// without blocking.
	CanRead() bool

	// CanReadLine reports whether a complete CRLF-terminated line is
	// buffered and ready for ReadLine.
	CanReadLine() bool

	// EOF reports whether the peer has closed its write side and no more
	// bytes will ever arrive.
	EOF() bool

	// DiscardConnection releases the transport's resources. After this
	// call no callback may fire.
	DiscardConnection()

	// SetOnConnected registers the callback fired once Connect succeeds.
	SetOnConnected(func())
	// SetOnReadyToRead registers the callback fired whenever new bytes
	// become available to Read/ReadLine/CanRead/CanReadLine.
	SetOnReadyToRead(func())
	// SetOnConnectionError registers the callback fired if Connect (or the
	// connection subsequently) fails.
	SetOnConnectionError(func())
}
