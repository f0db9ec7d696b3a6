package ws

import (
	"fmt"
	"strings"
)

// maxHandshakeLine bounds a single handshake line read via
// Transport.ReadLine, guarding against a peer that never sends CRLF.
const maxHandshakeLine = 8192

// serverHandshakeReader parses the server's HTTP Upgrade response
// line-by-line, suspending between calls to step whenever the transport has
// no complete line buffered yet. It mirrors
// original_source/.../WebSocket.cpp read_server_handshake()'s resumable
// design: m_has_read_server_handshake_first_line and friends become fields
// here instead of members of WebSocket itself.
type serverHandshakeReader struct {
	info     ConnectionInfo
	key      string
	protocol string

	readStatusLine bool
	sawUpgrade     bool
	sawConnection  bool
	sawAccept      bool
}

func newServerHandshakeReader(info ConnectionInfo, key string) *serverHandshakeReader {
	return &serverHandshakeReader{info: info, key: key}
}

// step reads as many complete lines as the transport currently has
// buffered. It returns done=true once the terminating blank line has been
// consumed and all mandatory headers were present; it returns a non-nil err
// on the first malformed or unacceptable line. If neither, the caller
// should wait for another OnReadyToRead notification and call step again.
func (r *serverHandshakeReader) step(t Transport) (done bool, err error) {
	if !r.readStatusLine {
		if !t.CanReadLine() {
			return false, nil
		}
		line := t.ReadLine(maxHandshakeLine)
		if err := r.parseStatusLine(line); err != nil {
			return false, err
		}
		r.readStatusLine = true
	}

	for t.CanReadLine() {
		line := t.ReadLine(maxHandshakeLine)
		if isBlankLine(line) {
			if !r.sawUpgrade {
				return false, fmt.Errorf("missing Upgrade header")
			}
			if !r.sawConnection {
				return false, fmt.Errorf("missing Connection header")
			}
			if !r.sawAccept {
				return false, fmt.Errorf("missing Sec-WebSocket-Accept header")
			}
			return true, nil
		}
		if err := r.parseHeaderLine(line); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (r *serverHandshakeReader) parseStatusLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return fmt.Errorf("malformed status line %q", line)
	}
	if parts[0] != "HTTP/1.1" {
		return fmt.Errorf("unsupported HTTP version %q", parts[0])
	}
	if parts[1] != "101" {
		return fmt.Errorf("unexpected HTTP status %q", parts[1])
	}
	return nil
}

func (r *serverHandshakeReader) parseHeaderLine(line string) error {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return fmt.Errorf("malformed header line %q", line)
	}
	name := line[:colon]
	value := strings.TrimSpace(line[colon+1:])

	switch {
	case strings.EqualFold(name, "Upgrade"):
		if !strings.EqualFold(value, "websocket") {
			return fmt.Errorf("unexpected Upgrade header %q", value)
		}
		r.sawUpgrade = true

	case strings.EqualFold(name, "Connection"):
		if !strings.EqualFold(value, "Upgrade") {
			return fmt.Errorf("unexpected Connection header %q", value)
		}
		r.sawConnection = true

	case strings.EqualFold(name, "Sec-WebSocket-Accept"):
		if !checkAccept(value, r.key) {
			return fmt.Errorf("unexpected Sec-WebSocket-Accept value %q", value)
		}
		r.sawAccept = true

	case strings.EqualFold(name, "Sec-WebSocket-Extensions"):
		ok, bad := validateEchoedTokens(value, func(tok string) bool {
			return extensionsContainName(r.info.Extensions(), tok)
		})
		if !ok {
			return fmt.Errorf("unsupported extension %q", bad)
		}

	case strings.EqualFold(name, "Sec-WebSocket-Protocol"):
		// RFC6455 §1.3: the server selects one or none of the acceptable
		// protocols and echoes that exact value; it is not a
		// comma-separated list like Sec-WebSocket-Extensions.
		for _, want := range r.info.Protocols() {
			if strings.EqualFold(value, want) {
				r.protocol = want
				break
			}
		}
		if r.protocol == "" {
			return fmt.Errorf("unsupported subprotocol %q", value)
		}
	}

	return nil
}

func isBlankLine(line string) bool {
	return strings.TrimSpace(line) == ""
}
