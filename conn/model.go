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
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/peercreds"
	"github.com/sabouaram/httpsrv/request"
	"github.com/sabouaram/httpsrv/stream"
	"github.com/sabouaram/httpsrv/tlsadapter"
)

type cnx struct {
	m   sync.Mutex
	sck net.Conn
	rd  stream.Reader
	wr  stream.Writer
	opt Options
	env map[string]string
	fd  int

	lst atomic.Int64  // unix nano of last use
	cnt atomic.Uint64 // completed request cycles
	cls atomic.Bool

	tlsDone bool
	pcDone  bool
}

func (o *cnx) logger() liblog.Logger {
	if o.opt.Logger == nil {
		return liblog.GetDefault()
	} else if l := o.opt.Logger(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *cnx) initStreams() {
	o.rd = stream.NewReader(o.sck, o.opt.RBufSize)
	o.wr = stream.NewWriter(o.sck, o.opt.WBufSize)
}

func (o *cnx) Fd() int {
	return o.fd
}

func (o *cnx) RemoteAddr() net.Addr {
	return o.sck.RemoteAddr()
}

func (o *cnx) LastUsed() time.Time {
	return time.Unix(0, o.lst.Load())
}

func (o *cnx) Touch() {
	o.lst.Store(time.Now().UnixNano())
}

func (o *cnx) RequestsSeen() uint64 {
	return o.cnt.Load()
}

func (o *cnx) BytesRead() uint64 {
	return o.rd.BytesRead()
}

func (o *cnx) BytesWritten() uint64 {
	return o.wr.BytesWritten()
}

func (o *cnx) HasData() bool {
	return o.rd.HasData()
}

func (o *cnx) IsClosed() bool {
	return o.cls.Load()
}

func (o *cnx) Close() error {
	if o.cls.Swap(true) {
		return nil
	}

	return o.sck.Close()
}

func (o *cnx) Overloaded(d time.Duration) {
	if d > 0 {
		_ = o.sck.SetWriteDeadline(time.Now().Add(d))
	}

	request.OverloadedResponse(o.sck)
	_ = o.Close()
}

// Communicate runs one request cycle. The first service completes the TLS
// wrap and the peer credential lookup so that the manager thread never
// blocks on either.
func (o *cnx) Communicate(h gateway.Handler) bool {
	o.m.Lock()
	defer o.m.Unlock()

	if o.cls.Load() {
		return false
	}

	if !o.setupTLS() {
		return false
	}

	o.setupPeerCreds()

	// only reads carry the inactivity deadline: an error response must
	// still go out after the request head stalled
	if o.opt.Timeout > 0 {
		_ = o.sck.SetReadDeadline(time.Now().Add(o.opt.Timeout))
	}

	req := request.New(o.rd, o.wr, request.Options{
		ServerName:    o.opt.ServerName,
		Timeout:       o.opt.Timeout,
		MaxHeaderSize: o.opt.MaxHeaderSize,
		MaxBodySize:   o.opt.MaxBodySize,
		Headers:       o.opt.Headers,
		Proxy:         o.opt.Proxy,
		Environ:       o.env,
		Logger:        o.opt.Logger,
	})

	if !req.Parse() {
		o.Touch()
		return false
	}

	req.Respond(o.protect(h, req))

	o.cnt.Add(1)
	o.Touch()

	if req.CloseConnection() {
		return false
	}

	// the idle deadline belongs to the manager expiry sweep, not to the
	// socket
	_ = o.sck.SetReadDeadline(time.Time{})

	return true
}

// protect converts a gateway panic into a 500 when headers are still
// pending, a forced close otherwise.
func (o *cnx) protect(h gateway.Handler, req request.Request) gateway.Handler {
	return gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				o.logger().Entry(loglvl.ErrorLevel, "gateway panic while serving request: %v", rec).Log()
				req.InternalError()
			}
		}()

		if h != nil {
			h.ServeHTTP(w, r)
		}
	})
}

func (o *cnx) setupTLS() bool {
	if o.opt.TLS == nil || o.tlsDone {
		return true
	}

	wrp, env, err := o.opt.TLS.Wrap(o.sck, o.opt.Timeout)

	if err != nil {
		if !tlsadapter.IsBenign(err) {
			o.logger().Entry(loglvl.WarnLevel, "tls handshake failed").ErrorAdd(true, err).Check(loglvl.NilLevel)
		}

		_ = o.Close()
		return false
	}

	if wrp == nil {
		// a clear-text request reached the TLS port
		request.PlainHTTPResponse(o.sck)
		_ = o.Close()
		return false
	}

	o.sck = wrp

	for k, v := range env {
		o.env[k] = v
	}

	o.initStreams()
	o.tlsDone = true

	return true
}

func (o *cnx) setupPeerCreds() {
	if !o.opt.PeerCreds || o.pcDone {
		return
	}

	o.pcDone = true

	crd, err := peercreds.Resolve(o.sck, o.opt.PeerCredsNames)

	if err != nil {
		// an internal condition only: never reflected in any response
		o.logger().Entry(loglvl.DebugLevel, "peer credentials unavailable").ErrorAdd(true, err).Check(loglvl.NilLevel)
		return
	}

	for k, v := range crd.Environ() {
		o.env[k] = v
	}
}
