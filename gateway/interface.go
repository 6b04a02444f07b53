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

package gateway

import "io"

// Request is the engine-side view of one parsed HTTP request, valid for the
// duration of a single ServeHTTP call.
type Request interface {
	// Method returns the request method as sent by the client.
	Method() string

	// RequestURI returns the raw request target from the request line.
	RequestURI() string

	// Path returns the path component of the request target as received,
	// without percent-decoding.
	Path() string

	// Query returns the raw query string, without the leading '?'.
	Query() string

	// Authority returns the authority component when the client used an
	// absolute-form or authority-form target, otherwise the Host header.
	Authority() string

	// Proto returns the request protocol version.
	Proto() (major int, minor int)

	// Header returns the inbound header set, ordered and case preserving.
	Header() Header

	// Body returns the framed request body. The reader fails with an error
	// when the client disconnects before the declared length is consumed.
	Body() io.Reader

	// Environ returns the transport environment: remote address, TLS
	// certificate fields and peer credentials when available.
	Environ() map[string]string
}

// Writer is the response side handed to a Handler. Headers are buffered
// until the first body byte is written.
type Writer interface {
	// ResponseHeader returns the outbound header set. Mutations after the
	// first Write are ignored.
	ResponseHeader() Header

	// WriteStatus sets the response status. When reason is empty the
	// standard reason phrase is used. Calling it after the first Write has
	// no effect.
	WriteStatus(code int, reason string)

	// Write sends one body chunk, transmitting status line and headers
	// first if they are still pending.
	Write(p []byte) (n int, err error)
}

// Handler is the application gateway contract.
type Handler interface {
	ServeHTTP(w Writer, r Request)
}

// FuncHandler adapts a plain function to the Handler interface.
type FuncHandler func(w Writer, r Request)

func (f FuncHandler) ServeHTTP(w Writer, r Request) {
	f(w, r)
}
