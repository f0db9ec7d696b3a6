package ws

import (
	"bytes"
	"strings"

	"github.com/gobwas/httphead"
)

// writeExtensionsHeader renders the requested extensions as a
// Sec-WebSocket-Extensions header value, preserving any parameters
// (e.g. "permessage-deflate; client_max_window_bits").
func writeExtensionsHeader(extensions []httphead.Option) (string, error) {
	var buf bytes.Buffer
	if _, err := httphead.WriteOptions(&buf, extensions); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extensionsContainName reports whether extensions offers name, compared
// case-insensitively.
func extensionsContainName(extensions []httphead.Option, name string) bool {
	for _, ext := range extensions {
		if strings.EqualFold(string(ext.Name), name) {
			return true
		}
	}
	return false
}

// validateEchoedTokens splits a comma-separated header value into tokens
// and ensures each trimmed token is present (case-insensitively) among
// allowed. It is used for Sec-WebSocket-Extensions (against
// ConnectionInfo.Extensions' names); Sec-WebSocket-Protocol is matched as a
// single token in parseHeaderLine instead.
func validateEchoedTokens(value string, allowed func(token string) bool) (ok bool, offending string) {
	for _, tok := range strings.Split(value, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !allowed(tok) {
			return false, tok
		}
	}
	return true, ""
}
