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
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"

	"github.com/sabouaram/httpsrv/stream"
)

func (o *request) Parse() bool {
	cpd := stream.NewCapped(o.rd, o.opt.MaxHeaderSize)

	o.stt = stateReadingLine

	lin, err := cpd.ReadLine(0)

	// tolerate a single leading empty line before the request line
	if err == nil && len(lin) == 0 {
		lin, err = cpd.ReadLine(0)
	}

	if err != nil {
		o.abortOnReadError(err, true)
		return false
	}

	o.started = true

	if e := o.parseLine(string(lin)); e != nil {
		o.failParse(e)
		return false
	}

	o.stt = stateReadingHeaders

	if e := o.opt.Headers.ReadHeaders(cpd, o.hdi); e != nil {
		o.abortOnReadError(e, false)
		return false
	}

	o.decideKeepAlive()

	if e := o.selectBody(); e != nil {
		o.failParse(e)
		return false
	}

	o.buildEnviron()

	o.stt = stateReadingBody
	return true
}

// abortOnReadError classifies a failure while reading the request head:
// quiet close when the client simply went away, 408 on inactivity, 414 on
// an oversized request line, 413 on an oversized header section, 400
// otherwise.
func (o *request) abortOnReadError(err error, line bool) {
	o.stt = stateAborted

	switch {
	case errors.Is(err, io.EOF) && !o.started:
		o.close = true

	case isTimeout(err):
		o.SimpleResponse(408, "")

	case line && (stream.IsEntityTooLarge(err) || stream.IsLineTooLong(err)):
		o.SimpleResponse(414, "")

	case hasCode(err, ErrorHeaderTooLarge):
		o.SimpleResponse(413, "")

	case hasCode(err, ErrorStreamClosed), errors.Is(err, io.EOF):
		o.close = true

	case isSocketError(err):
		o.logger().Entry(loglvl.DebugLevel, "dropping connection on socket error").ErrorAdd(true, err).Check(loglvl.NilLevel)
		o.close = true

	default:
		o.SimpleResponse(400, "")
	}
}

// failParse answers a request line or framing validation failure with the
// status carried by the error code.
func (o *request) failParse(e liberr.Error) {
	o.stt = stateAborted

	switch {
	case e.HasCode(ErrorVersionNotSupported):
		o.SimpleResponse(505, "")
	case e.HasCode(ErrorMethodNotAllowed):
		o.SimpleResponse(405, "")
	case e.HasCode(ErrorBodyTooLarge):
		o.SimpleResponse(413, "")
	default:
		o.SimpleResponse(400, "")
	}
}

func (o *request) decideKeepAlive() {
	tok := strings.ToLower(o.hdi.Get("Connection"))

	if o.min == 0 {
		o.close = !strings.Contains(tok, "keep-alive")
	} else {
		o.close = strings.Contains(tok, "close")
	}
}

// selectBody picks the request body framing. Carrying both a length and a
// transfer coding is answered with a hard 400: resolving the ambiguity in
// either direction opens the door to request smuggling.
func (o *request) selectBody() liberr.Error {
	var (
		tev = o.hdi.Values("Transfer-Encoding")
		clv = o.hdi.Values("Content-Length")
	)

	if len(tev) > 0 && len(clv) > 0 {
		return ErrorAmbiguousFraming.Error(nil)
	}

	if len(tev) > 0 {
		if !isChunked(tev) {
			return ErrorBadTransferCoding.Error(nil)
		}

		o.bdy = stream.NewChunkedReader(o.rd, o.opt.MaxBodySize)
	} else if len(clv) > 0 {
		siz, err := parseContentLength(clv)

		if err != nil {
			return err
		}

		if siz > o.opt.MaxBodySize {
			return ErrorBodyTooLarge.Error(nil)
		}

		if siz > 0 {
			o.bdy = stream.NewLenReader(o.rd, siz)
		}
	}

	if o.bdy != nil && o.min >= 1 {
		if strings.Contains(strings.ToLower(o.hdi.Get("Expect")), "100-continue") {
			o.expect = true
		}
	}

	return nil
}

func isChunked(codings []string) bool {
	for _, c := range codings {
		for _, t := range strings.Split(c, ",") {
			if strings.EqualFold(strings.TrimSpace(t), "chunked") {
				return true
			}
		}
	}

	return false
}

func parseContentLength(vals []string) (int64, liberr.Error) {
	var ref string

	// duplicates are only tolerated when every occurrence agrees
	for _, v := range vals {
		v = strings.TrimSpace(v)

		if ref == "" {
			ref = v
		} else if v != ref {
			return 0, ErrorBadContentLength.Error(nil)
		}
	}

	siz, err := strconv.ParseInt(ref, 10, 64)

	if err != nil || siz < 0 {
		return 0, ErrorBadContentLength.Error(err)
	}

	return siz, nil
}

func (o *request) buildEnviron() {
	for k, v := range o.opt.Environ {
		o.env[k] = v
	}

	o.env["REQUEST_METHOD"] = o.mtd
	o.env["SERVER_PROTOCOL"] = "HTTP/" + strconv.Itoa(o.maj) + "." + strconv.Itoa(o.min)

	if o.aut != "" {
		o.env["REQUEST_AUTHORITY"] = o.aut
	}
}

func hasCode(e error, code liberr.CodeError) bool {
	if e == nil {
		return false
	} else if err, ok := e.(liberr.Error); !ok {
		return false
	} else {
		return err.HasCode(code)
	}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	var ne net.Error

	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	if le, ok := err.(liberr.Error); ok {
		for _, p := range le.GetParent(false) {
			if isTimeout(p) {
				return true
			}
		}
	}

	return false
}

func isSocketError(err error) bool {
	if err == nil {
		return false
	}

	var oe *net.OpError

	if errors.As(err, &oe) {
		return true
	}

	if le, ok := err.(liberr.Error); ok {
		for _, p := range le.GetParent(false) {
			if isSocketError(p) {
				return true
			}
		}
	}

	return false
}
