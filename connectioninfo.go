package ws

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/httphead"
)

// ExtraHeader is a single extra HTTP header the host wants sent verbatim
// with the opening handshake request.
type ExtraHeader struct {
	Name, Value string
}

// ConnectionInfo holds the immutable parameters of a single WebSocket
// connection attempt: the target URL, optional Origin, requested
// subprotocols and extensions, and any extra headers. It is constructed
// once via NewConnectionInfo and never mutated afterwards.
type ConnectionInfo struct {
	url          *url.URL
	origin       string
	resourceName string
	isSecure     bool
	protocols    []string
	extensions   []httphead.Option
	extraHeaders []ExtraHeader
}

// NewConnectionInfo parses rawURL and builds a ConnectionInfo. The scheme
// must be "ws", "wss" or "https" (case-insensitively); "wss" and "https" both mark
// the connection as secure, mirroring browser WebSocket URL handling.
func NewConnectionInfo(rawURL string) (ConnectionInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("ws: invalid url: %w", err)
	}

	var isSecure bool
	switch strings.ToLower(u.Scheme) {
	case "ws":
		isSecure = false
	case "wss", "https":
		isSecure = true
	default:
		return ConnectionInfo{}, fmt.Errorf("ws: unsupported scheme %q", u.Scheme)
	}

	resourceName := u.RequestURI()
	if resourceName == "" {
		resourceName = "/"
	}

	return ConnectionInfo{
		url:          u,
		resourceName: resourceName,
		isSecure:     isSecure,
	}, nil
}

// WithOrigin returns a copy of info with Origin set.
func (info ConnectionInfo) WithOrigin(origin string) ConnectionInfo {
	info.origin = origin
	return info
}

// WithProtocols returns a copy of info with the requested subprotocols set,
// in preference order.
func (info ConnectionInfo) WithProtocols(protocols ...string) ConnectionInfo {
	info.protocols = append([]string(nil), protocols...)
	return info
}

// WithExtensions returns a copy of info with the requested extensions set.
func (info ConnectionInfo) WithExtensions(extensions ...httphead.Option) ConnectionInfo {
	info.extensions = append([]httphead.Option(nil), extensions...)
	return info
}

// WithHeaders returns a copy of info with extra headers appended verbatim
// to the handshake request.
func (info ConnectionInfo) WithHeaders(headers ...ExtraHeader) ConnectionInfo {
	info.extraHeaders = append(append([]ExtraHeader(nil), info.extraHeaders...), headers...)
	return info
}

// URL returns the connection's target URL.
func (info ConnectionInfo) URL() *url.URL { return info.url }

// Origin returns the optional Origin header value.
func (info ConnectionInfo) Origin() string { return info.origin }

// ResourceName returns the path+query of the URL, defaulting to "/".
func (info ConnectionInfo) ResourceName() string { return info.resourceName }

// IsSecure reports whether the connection should be established over TLS.
func (info ConnectionInfo) IsSecure() bool { return info.isSecure }

// Protocols returns the requested subprotocols, in preference order.
func (info ConnectionInfo) Protocols() []string { return info.protocols }

// Extensions returns the requested extensions.
func (info ConnectionInfo) Extensions() []httphead.Option { return info.extensions }

// ExtraHeaders returns extra headers to send verbatim with the handshake.
func (info ConnectionInfo) ExtraHeaders() []ExtraHeader { return info.extraHeaders }

// defaultPort returns the scheme's default port: 443 for a secure
// connection, 80 otherwise.
func (info ConnectionInfo) defaultPort() string {
	if info.isSecure {
		return "443"
	}
	return "80"
}

// hostHeader returns the value for the request's Host header: the URL's
// hostname, plus ":port" iff the port differs from the scheme default.
func (info ConnectionInfo) hostHeader() string {
	host := info.url.Hostname()
	port := info.url.Port()
	if port == "" || port == info.defaultPort() {
		return host
	}
	return host + ":" + port
}
