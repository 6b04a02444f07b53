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

package manager

import (
	"net"
	"sync/atomic"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/pool"
)

type mgr struct {
	cfg Config
	pl  pool.Pool
	lst []net.Listener
	lfd []int

	// idl is the keep-alive idle set, owned solely by the loop goroutine
	idl map[int]conn.Connection

	rqc chan conn.Connection
	pol *poller
	dne chan struct{}

	ran atomic.Bool
	srv atomic.Bool
	stp atomic.Bool

	itr atomic.Value // assigned interrupt error

	cntAcc atomic.Uint64
	cntExp atomic.Uint64
	cntOvl atomic.Uint64
	cntIdl atomic.Int64
}

func (o *mgr) logger() liblog.Logger {
	if o.cfg.Logger == nil {
		return liblog.GetDefault()
	} else if l := o.cfg.Logger(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *mgr) IsServing() bool {
	return o.srv.Load()
}

func (o *mgr) Idle() int {
	return int(o.cntIdl.Load())
}

func (o *mgr) Stats() Snapshot {
	return Snapshot{
		Accepted:  o.cntAcc.Load(),
		Expired:   o.cntExp.Load(),
		Overloads: o.cntOvl.Load(),
		Idle:      o.Idle(),
	}
}

func (o *mgr) Interrupt(err error) {
	if err != nil {
		o.itr.Store(err)
	}

	o.requestStop()
}

func (o *mgr) Stop() {
	o.requestStop()

	if o.ran.Load() {
		<-o.dne
	}
}

func (o *mgr) requestStop() {
	if o.stp.Swap(true) {
		if p := o.pol; p != nil {
			p.wake()
		}
		return
	}

	o.srv.Store(false)

	if p := o.pol; p != nil {
		p.wake()
	}
}

// Requeue transfers a keep-alive connection back from a worker. When the
// loop is gone, or the hand-off channel is saturated, the connection is
// closed instead of leaking.
func (o *mgr) Requeue(c conn.Connection) {
	if c == nil {
		return
	}

	if !o.srv.Load() {
		_ = c.Close()
		return
	}

	select {
	case o.rqc <- c:
		if p := o.pol; p != nil {
			p.wake()
		}
	default:
		_ = c.Close()
	}
}
