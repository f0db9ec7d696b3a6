// Package transport provides the concrete ws.Transport backing the
// WebSocket engine uses against a real network: a plain TCP socket for
// "ws" connections, upgraded to TLS for "wss"/"https" ones.
//
// A conn runs a single background goroutine per connection that blocks on
// net.Conn.Read and feeds bytes into an internal queue, firing
// OnReadyToRead once per delivery. All of a connection's callbacks
// therefore fire serially, on that one goroutine; callers must not drive
// the same ws.WebSocket from anywhere else concurrently, the same
// single-threaded-event-loop assumption original_source makes.
package transport

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"net"
	"sync"

	"github.com/gobwas/pool/pbufio"
	"github.com/gobwas/pool/pbytes"
	"github.com/sirupsen/logrus"

	ws "github.com/SCKelemen/serenity"
)

const (
	readBufferSize  = 4096
	writeBufferSize = 4096
	readChunkSize   = 4096
)

// Dial returns a ws.Transport that connects over real TCP, or TLS when
// info.IsSecure reports true. It is meant to be passed directly as
// ws.Create's transport factory:
//
//	socket := ws.Create(info, transport.Dial)
func Dial(info ws.ConnectionInfo) ws.Transport {
	return &conn{
		info: info,
		log:  logrus.WithField("component", "transport"),
	}
}

type conn struct {
	info ws.ConnectionInfo
	log  *logrus.Entry

	netConn net.Conn
	br      *bufio.Reader

	writeMu sync.Mutex
	bw      *bufio.Writer

	mu     sync.Mutex
	buf    []byte
	eof    bool
	closed bool

	callbackMu        sync.Mutex
	onConnected       func()
	onReadyToRead     func()
	onConnectionError func()
}

func (c *conn) Connect(info ws.ConnectionInfo) {
	c.info = info
	go c.run()
}

func (c *conn) run() {
	host, port := hostAndPort(c.info)

	netConn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		c.log.WithError(err).WithField("addr", host).Warn("dial failed")
		c.fireConnectionError()
		return
	}

	if c.info.IsSecure() {
		tlsConn := tls.Client(netConn, &tls.Config{ServerName: host})
		if err := tlsConn.Handshake(); err != nil {
			c.log.WithError(err).Warn("tls handshake failed")
			netConn.Close()
			c.fireConnectionError()
			return
		}
		netConn = tlsConn
	}

	c.mu.Lock()
	c.netConn = netConn
	c.br = pbufio.GetReader(netConn, readBufferSize)
	c.mu.Unlock()

	c.writeMu.Lock()
	c.bw = pbufio.GetWriter(netConn, writeBufferSize)
	c.writeMu.Unlock()

	c.fireConnected()
	c.readLoop()
}

func (c *conn) readLoop() {
	for {
		c.mu.Lock()
		br := c.br
		c.mu.Unlock()
		if br == nil {
			return
		}

		scratch := pbytes.GetLen(readChunkSize)
		n, err := br.Read(scratch)

		if n > 0 {
			c.mu.Lock()
			c.buf = append(c.buf, scratch[:n]...)
			c.mu.Unlock()
		}
		pbytes.Put(scratch)

		if n > 0 {
			c.fireReadyToRead()
		}
		if err != nil {
			c.mu.Lock()
			c.eof = true
			c.mu.Unlock()
			c.fireReadyToRead()
			return
		}
	}
}

func (c *conn) Send(p []byte) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.bw == nil {
		return false
	}
	if _, err := c.bw.Write(p); err != nil {
		c.log.WithError(err).Warn("write failed")
		return false
	}
	if err := c.bw.Flush(); err != nil {
		c.log.WithError(err).Warn("flush failed")
		return false
	}
	return true
}

func (c *conn) Read(n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n > len(c.buf) {
		n = len(c.buf)
	}
	out := append([]byte(nil), c.buf[:n]...)
	c.buf = c.buf[n:]
	return out
}

func (c *conn) ReadLine(max int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := bytes.Index(c.buf, crlf)
	if idx < 0 {
		return ""
	}
	cut := idx
	if cut > max {
		cut = max
	}
	line := string(c.buf[:cut])
	c.buf = c.buf[idx+len(crlf):]
	return line
}

func (c *conn) CanRead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf) > 0
}

func (c *conn) CanReadLine() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Index(c.buf, crlf) >= 0
}

func (c *conn) EOF() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eof && len(c.buf) == 0
}

func (c *conn) DiscardConnection() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	netConn := c.netConn
	if c.br != nil {
		pbufio.PutReader(c.br)
		c.br = nil
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	if c.bw != nil {
		pbufio.PutWriter(c.bw)
		c.bw = nil
	}
	c.writeMu.Unlock()

	if netConn != nil {
		netConn.Close()
	}
}

func (c *conn) SetOnConnected(f func()) {
	c.callbackMu.Lock()
	c.onConnected = f
	c.callbackMu.Unlock()
}

func (c *conn) SetOnReadyToRead(f func()) {
	c.callbackMu.Lock()
	c.onReadyToRead = f
	c.callbackMu.Unlock()
}

func (c *conn) SetOnConnectionError(f func()) {
	c.callbackMu.Lock()
	c.onConnectionError = f
	c.callbackMu.Unlock()
}

func (c *conn) fireConnected() {
	c.callbackMu.Lock()
	f := c.onConnected
	c.callbackMu.Unlock()
	if f != nil {
		f()
	}
}

func (c *conn) fireReadyToRead() {
	c.callbackMu.Lock()
	f := c.onReadyToRead
	c.callbackMu.Unlock()
	if f != nil {
		f()
	}
}

func (c *conn) fireConnectionError() {
	c.callbackMu.Lock()
	f := c.onConnectionError
	c.callbackMu.Unlock()
	if f != nil {
		f()
	}
}

var crlf = []byte("\r\n")

func hostAndPort(info ws.ConnectionInfo) (host, port string) {
	host = info.URL().Hostname()
	port = info.URL().Port()
	if port != "" {
		return host, port
	}
	if info.IsSecure() {
		return host, "443"
	}
	return host, "80"
}
