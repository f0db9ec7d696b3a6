package ws

import "strings"

// buildClientHandshake renders the opening HTTP Upgrade request for info,
// using key as the Sec-WebSocket-Key value. It mirrors
// original_source/.../WebSocket.cpp send_client_handshake(), numbering
// preserved in the comments below to ease cross-reference with RFC6455
// §4.1's client requirements list.
func buildClientHandshake(info ConnectionInfo, key string) (string, error) {
	var b strings.Builder

	// 2, 3: request line.
	b.WriteString("GET ")
	b.WriteString(info.ResourceName())
	b.WriteString(" HTTP/1.1\r\n")

	// 4: Host, with an explicit port only when it differs from the
	// scheme's default.
	b.WriteString("Host: ")
	b.WriteString(info.hostHeader())
	b.WriteString("\r\n")

	// 5, 6: Upgrade/Connection.
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")

	// 7: Sec-WebSocket-Key.
	b.WriteString("Sec-WebSocket-Key: ")
	b.WriteString(key)
	b.WriteString("\r\n")

	// 8: Origin (optional).
	if origin := info.Origin(); origin != "" {
		b.WriteString("Origin: ")
		b.WriteString(origin)
		b.WriteString("\r\n")
	}

	// 9: protocol version, fixed at 13.
	b.WriteString("Sec-WebSocket-Version: 13\r\n")

	// 10: Sec-WebSocket-Protocol (optional).
	if protocols := info.Protocols(); len(protocols) > 0 {
		b.WriteString("Sec-WebSocket-Protocol: ")
		b.WriteString(strings.Join(protocols, ","))
		b.WriteString("\r\n")
	}

	// 11: Sec-WebSocket-Extensions (optional).
	if extensions := info.Extensions(); len(extensions) > 0 {
		value, err := writeExtensionsHeader(extensions)
		if err != nil {
			return "", err
		}
		if value != "" {
			b.WriteString("Sec-WebSocket-Extensions: ")
			b.WriteString(value)
			b.WriteString("\r\n")
		}
	}

	// 12: extra headers, verbatim.
	for _, h := range info.ExtraHeaders() {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}

	b.WriteString("\r\n")

	return b.String(), nil
}
