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
	"io"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/stream"
)

const (
	// DefaultMaxHeaderSize bounds the request head when the server gives
	// no explicit limit.
	DefaultMaxHeaderSize = 500 * 1024

	// DefaultMaxBodySize bounds the request body when the server gives no
	// explicit limit.
	DefaultMaxBodySize = 100 * 1024 * 1024
)

type state uint8

const (
	stateIdle state = iota
	stateReadingLine
	stateReadingHeaders
	stateReadingBody
	stateWritingHeaders
	stateWritingBody
	stateDone
	stateAborted
)

type request struct {
	rd  stream.Reader
	wr  stream.Writer
	opt Options
	stt state

	// request side
	mtd string
	uri string
	pth string
	qry string
	aut string
	maj int
	min int
	hdi gateway.Header
	bdy stream.Body
	env map[string]string

	// response side
	hdo gateway.Header
	sts int
	rsn string
	rMj int
	rMn int

	chunked bool
	sent    bool
	started bool
	close   bool
	expect  bool // 100-continue pending
	head    bool // HEAD request: suppress body bytes
}

func (o *request) logger() liblog.Logger {
	if o.opt.Logger == nil {
		return liblog.GetDefault()
	} else if l := o.opt.Logger(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *request) Method() string {
	return o.mtd
}

func (o *request) RequestURI() string {
	return o.uri
}

func (o *request) Path() string {
	return o.pth
}

func (o *request) Query() string {
	return o.qry
}

func (o *request) Authority() string {
	if o.aut != "" {
		return o.aut
	}

	return o.hdi.Get("Host")
}

func (o *request) Proto() (int, int) {
	return o.maj, o.min
}

func (o *request) Header() gateway.Header {
	return o.hdi
}

func (o *request) ResponseHeader() gateway.Header {
	return o.hdo
}

func (o *request) Body() io.Reader {
	if o.bdy == nil {
		return stream.NewEmptyBody()
	}

	if o.expect {
		return &continueReader{
			req: o,
		}
	}

	return o.bdy
}

func (o *request) Environ() map[string]string {
	return o.env
}

func (o *request) SentHeaders() bool {
	return o.sent
}

func (o *request) Started() bool {
	return o.started
}

func (o *request) CloseConnection() bool {
	return o.close
}

// continueReader defers the 100 Continue interim response until the
// gateway actually pulls body bytes.
type continueReader struct {
	req *request
}

func (o *continueReader) Read(p []byte) (int, error) {
	if o.req.expect {
		o.req.expect = false

		if err := o.req.writeContinue(); err != nil {
			return 0, err
		}
	}

	return o.req.bdy.Read(p)
}
