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

package request

import (
	"time"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/stream"
)

// Options carries the per-connection knobs of the request machine.
type Options struct {
	// ServerName is the default Server response header value.
	ServerName string

	// Timeout is the advertised keep-alive delay, mirrored in the
	// Keep-Alive response header when the connection is retained.
	Timeout time.Duration

	// MaxHeaderSize bounds the request line plus header section.
	MaxHeaderSize int64

	// MaxBodySize bounds the declared or chunked request body.
	MaxBodySize int64

	// Headers selects the header reading strategy, defaulting to the
	// permissive reader.
	Headers HeaderReader

	// Proxy enables authority-form targets for CONNECT.
	Proxy bool

	// Environ is the connection environment snapshot merged into the
	// request environment: transport addresses, TLS certificate fields,
	// peer credentials.
	Environ map[string]string

	// Logger provides the log sink, defaulting to the package default
	// logger.
	Logger liblog.FuncLog
}

// Request drives one request cycle. It also implements the gateway facing
// Request and Writer views once Parse succeeded.
type Request interface {
	gateway.Request
	gateway.Writer

	// Parse reads and validates the request line and header section, and
	// selects the body framing. It returns false when the cycle cannot
	// continue: the client went away, or a protocol error response was
	// already emitted. The connection must then be closed.
	Parse() bool

	// Respond runs the gateway handler and completes the response:
	// pending headers are sent, a chunked body is terminated, and any
	// unread body remainder is drained to keep the stream framed.
	Respond(h gateway.Handler)

	// SimpleResponse emits a fixed-format error response with the given
	// status and forces the connection closed. Once headers have been sent
	// it writes nothing and only marks the connection for close.
	SimpleResponse(code int, extra string)

	// InternalError reports an unrecoverable gateway failure: a 500 when
	// headers are still pending, otherwise a forced close.
	InternalError()

	// SentHeaders reports whether status and headers reached the wire.
	SentHeaders() bool

	// Started reports whether a complete request line was read.
	Started() bool

	// CloseConnection reports whether the connection must be closed after
	// this cycle.
	CloseConnection() bool
}

// New binds a request cycle to a connection's stream pair.
func New(rd stream.Reader, wr stream.Writer, opt Options) Request {
	if opt.Headers == nil {
		opt.Headers = NewHeaderReader()
	}

	if opt.MaxHeaderSize <= 0 {
		opt.MaxHeaderSize = DefaultMaxHeaderSize
	}

	if opt.MaxBodySize <= 0 {
		opt.MaxBodySize = DefaultMaxBodySize
	}

	return &request{
		rd:  rd,
		wr:  wr,
		opt: opt,
		hdi: gateway.NewHeader(),
		hdo: gateway.NewHeader(),
		env: make(map[string]string, len(opt.Environ)+8),
		sts: 200,
	}
}
