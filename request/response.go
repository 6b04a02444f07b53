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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	loglvl "github.com/nabbar/golib/logger/level"

	"github.com/sabouaram/httpsrv/gateway"
)

// drainLimit bounds how much unread body is consumed to keep a keep-alive
// stream framed before giving up and closing instead.
const drainLimit = 64 * 1024

func (o *request) WriteStatus(code int, reason string) {
	if o.sent {
		return
	}

	o.sts = code
	o.rsn = reason
}

func (o *request) Write(p []byte) (int, error) {
	if err := o.ensureHeadersSent(); err != nil {
		return 0, err
	}

	o.stt = stateWritingBody

	if len(p) == 0 {
		return 0, nil
	}

	if o.head {
		// a HEAD response keeps its framing headers but carries no body
		return len(p), nil
	}

	if o.chunked {
		if err := o.writeChunk(p); err != nil {
			return 0, err
		}

		return len(p), nil
	}

	if err := o.wr.SendAll(p); err != nil {
		o.close = true
		return 0, ErrorWriteFailed.Error(err)
	}

	return len(p), nil
}

func (o *request) writeChunk(p []byte) error {
	hdr := strconv.FormatInt(int64(len(p)), 16) + "\r\n"

	if err := o.wr.SendAll([]byte(hdr)); err != nil {
		o.close = true
		return ErrorWriteFailed.Error(err)
	}

	if err := o.wr.SendAll(p); err != nil {
		o.close = true
		return ErrorWriteFailed.Error(err)
	}

	if err := o.wr.SendAll([]byte("\r\n")); err != nil {
		o.close = true
		return ErrorWriteFailed.Error(err)
	}

	return nil
}

// ensureHeadersSent assembles and transmits the status line and header
// block in a single write. It decides chunked framing and the connection
// disposition exactly once.
func (o *request) ensureHeadersSent() error {
	if o.sent {
		return nil
	}

	o.stt = stateWritingHeaders

	// an unconsumed 100-continue expectation is dropped once the final
	// response starts
	o.expect = false

	var (
		buf strings.Builder
		rsn = o.rsn
	)

	if rsn == "" {
		rsn = statusText(o.sts)
	}

	cln := o.hdo.Has("Content-Length")
	o.chunked = o.rMn >= 1 && !cln && bodyAllowed(o.sts) && !o.head

	if o.chunked {
		o.hdo.Set("Transfer-Encoding", "chunked")
	}

	if !o.hdo.Has("Server") && o.opt.ServerName != "" {
		o.hdo.Add("Server", o.opt.ServerName)
	}

	if !o.hdo.Has("Date") {
		o.hdo.Add("Date", time.Now().UTC().Format(http.TimeFormat))
	}

	// an HTTP/1.0 body with no declared length can only be delimited by
	// the connection closing
	if !o.chunked && !cln && bodyAllowed(o.sts) && !o.head && o.rMn == 0 {
		o.close = true
	}

	if o.close {
		o.hdo.Set("Connection", "close")
	} else if o.min == 0 {
		o.hdo.Set("Connection", "Keep-Alive")
	} else if o.opt.Timeout > 0 {
		// advertise the server delay so clients avoid reusing a
		// connection the server is about to expire
		o.hdo.Set("Keep-Alive", "timeout="+strconv.Itoa(int(o.opt.Timeout/time.Second)))
	}

	buf.WriteString("HTTP/")
	buf.WriteString(strconv.Itoa(o.rMj))
	buf.WriteString(".")
	buf.WriteString(strconv.Itoa(o.rMn))
	buf.WriteString(" ")
	buf.WriteString(strconv.Itoa(o.sts))
	buf.WriteString(" ")
	buf.WriteString(rsn)
	buf.WriteString("\r\n")

	o.hdo.Range(func(key string, value string) bool {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
		return true
	})

	buf.WriteString("\r\n")

	if err := o.wr.SendAll([]byte(buf.String())); err != nil {
		o.close = true
		return ErrorWriteFailed.Error(err)
	}

	o.sent = true
	return nil
}

// writeContinue emits the interim response for a pending 100-continue
// expectation.
func (o *request) writeContinue() error {
	lin := "HTTP/" + strconv.Itoa(o.rMj) + "." + strconv.Itoa(o.rMn) + " 100 Continue\r\n\r\n"

	if err := o.wr.SendAll([]byte(lin)); err != nil {
		o.close = true
		return ErrorWriteFailed.Error(err)
	}

	return o.wr.Flush()
}

func (o *request) Respond(h gateway.Handler) {
	if h != nil && o.stt != stateAborted {
		h.ServeHTTP(o, o)
	}

	o.finish()
}

// finish completes the cycle: pending headers go out (with an explicit
// zero length when nothing was written), a chunked body is terminated, the
// unread body remainder is drained, and the writer is flushed.
func (o *request) finish() {
	if o.stt == stateAborted {
		_ = o.wr.Flush()
		return
	}

	if !o.sent {
		if !o.hdo.Has("Content-Length") && bodyAllowed(o.sts) && !o.head {
			o.hdo.Set("Content-Length", "0")
		}

		if err := o.ensureHeadersSent(); err != nil {
			o.stt = stateAborted
			return
		}
	}

	if o.chunked {
		if err := o.wr.SendAll([]byte("0\r\n\r\n")); err != nil {
			o.close = true
		}
	}

	o.drainBody()

	if err := o.wr.Flush(); err != nil {
		o.logger().Entry(loglvl.DebugLevel, "flushing response").ErrorAdd(true, err).Check(loglvl.NilLevel)
		o.close = true
	}

	o.stt = stateDone
}

// drainBody consumes what the gateway left of the request body so the next
// request starts on a frame boundary. An overlong remainder or a read
// failure forces the connection closed instead.
func (o *request) drainBody() {
	if o.bdy == nil || o.close {
		return
	}

	n, err := io.Copy(io.Discard, io.LimitReader(o.bdy, drainLimit+1))

	if err != nil || n > drainLimit {
		o.close = true
	}
}

func (o *request) SimpleResponse(code int, extra string) {
	o.close = true

	if o.sent {
		return
	}

	var bdy string

	if extra != "" {
		bdy = fmt.Sprintf("<html><body><h1>%d %s</h1><p>%s</p></body></html>", code, statusText(code), extra)
	} else {
		bdy = fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", code, statusText(code))
	}

	o.sts = code
	o.rsn = ""
	o.hdo.Set("Content-Type", "text/html")
	o.hdo.Set("Content-Length", strconv.Itoa(len(bdy)))

	if err := o.ensureHeadersSent(); err != nil {
		return
	}

	if !o.head {
		_ = o.wr.SendAll([]byte(bdy))
	}

	_ = o.wr.Flush()
}

func (o *request) InternalError() {
	if o.sent {
		o.close = true
		return
	}

	o.SimpleResponse(500, "The server encountered an unexpected condition which prevented it from fulfilling the request.")
}

// PlainHTTPResponse is the clear-text answer for a plain HTTP request
// received on a TLS port, written before the socket is closed.
func PlainHTTPResponse(w io.Writer) {
	const bdy = "The client sent a plain HTTP request, but this server " +
		"speaks HTTPS on this port.\n"

	_, _ = w.Write([]byte("HTTP/1.1 400 Bad Request\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: " + strconv.Itoa(len(bdy)) + "\r\n" +
		"Connection: close\r\n\r\n" + bdy))
}

// OverloadedResponse is the fixed saturation answer written when the
// ready queue is full and the worker pool is at its maximum size.
func OverloadedResponse(w io.Writer) {
	const bdy = "<html><body><h1>503 Service Unavailable</h1></body></html>"

	_, _ = w.Write([]byte("HTTP/1.1 503 Service Unavailable\r\n" +
		"Content-Type: text/html\r\n" +
		"Content-Length: " + strconv.Itoa(len(bdy)) + "\r\n" +
		"Connection: close\r\n\r\n" + bdy))
}

func bodyAllowed(sts int) bool {
	if sts < 200 || sts == 204 || sts == 304 {
		return false
	}

	return true
}

func statusText(code int) string {
	switch code {
	case 413:
		return "Request Entity Too Large"
	case 414:
		return "Request-URI Too Long"
	}

	if t := http.StatusText(code); t != "" {
		return t
	}

	return "Unknown Status"
}
