/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package conn

import (
	"net"
	"syscall"
	"time"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/request"
	"github.com/sabouaram/httpsrv/tlsadapter"
)

// Options carries the per-connection policy handed down by the server.
type Options struct {
	// RBufSize and WBufSize size the buffered stream pair.
	RBufSize int
	WBufSize int

	// Timeout is the per-request inactivity limit applied as the socket
	// deadline while a request is serviced.
	Timeout time.Duration

	// ServerName, MaxHeaderSize, MaxBodySize, Headers and Proxy feed the
	// request machine.
	ServerName    string
	MaxHeaderSize int64
	MaxBodySize   int64
	Headers       request.HeaderReader
	Proxy         bool

	// PeerCreds enables local socket peer identification, PeerCredsNames
	// additionally resolves user and group names.
	PeerCreds      bool
	PeerCredsNames bool

	// TLS completes the socket into an encrypted stream on first service.
	TLS tlsadapter.Adapter

	// Logger provides the log sink.
	Logger liblog.FuncLog
}

// Connection is one accepted transport stream carrying zero or more
// request cycles.
type Connection interface {
	// Fd returns the pollable descriptor of the underlying socket.
	Fd() int

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr

	// LastUsed returns the time of the last completed service or accept.
	LastUsed() time.Time

	// Touch refreshes LastUsed.
	Touch()

	// RequestsSeen counts completed request cycles.
	RequestsSeen() uint64

	// BytesRead and BytesWritten are cumulative socket counters.
	BytesRead() uint64
	BytesWritten() uint64

	// HasData reports whether request bytes are already buffered; such a
	// connection must not be parked in the idle selector set.
	HasData() bool

	// Communicate services one request cycle with the gateway handler and
	// reports whether the connection is to be kept alive.
	Communicate(h gateway.Handler) bool

	// Overloaded answers the fixed 503 saturation response within the
	// given write budget and closes.
	Overloaded(d time.Duration)

	// IsClosed reports whether Close already ran.
	IsClosed() bool

	// Close shuts the socket down, idempotent.
	Close() error
}

// New wraps an accepted socket. The stream pair is built immediately over
// the raw socket and rebuilt if a TLS adapter completes the wrap later.
func New(s net.Conn, opt Options) Connection {
	o := &cnx{
		sck: s,
		opt: opt,
		env: make(map[string]string, 8),
		fd:  -1,
	}

	o.initStreams()
	o.Touch()

	if sc, ok := s.(syscall.Conn); ok {
		if raw, err := sc.SyscallConn(); err == nil {
			_ = raw.Control(func(fd uintptr) {
				o.fd = int(fd)
			})
		}
	}

	if a := s.RemoteAddr(); a != nil {
		if h, p, err := net.SplitHostPort(a.String()); err == nil {
			o.env["REMOTE_ADDR"] = h
			o.env["REMOTE_PORT"] = p
		} else {
			o.env["REMOTE_ADDR"] = a.String()
		}
	}

	return o
}
