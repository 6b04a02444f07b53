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

package pool

import (
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/gateway"
)

type pool struct {
	m   sync.Mutex
	cfg Config
	hdl gateway.Handler
	rqf FuncRequeue
	qch chan conn.Connection
	wks []*worker
	wg  sync.WaitGroup

	nid uint64
	siz atomic.Int64
	bsy atomic.Int64
	srv atomic.Uint64
	sbr atomic.Uint64
	sbw atomic.Uint64
	run atomic.Bool
	stp atomic.Bool
}

func (o *pool) logger() liblog.Logger {
	if o.cfg.Logger == nil {
		return liblog.GetDefault()
	} else if l := o.cfg.Logger(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *pool) Start() {
	if o.run.Swap(true) {
		return
	}

	o.stp.Store(false)
	o.Grow(o.cfg.Min)
}

func (o *pool) Grow(n int) {
	o.m.Lock()
	defer o.m.Unlock()

	for i := 0; i < n; i++ {
		if o.cfg.Max >= 0 && int(o.siz.Load()) >= o.cfg.Max {
			return
		}

		o.nid++

		w := &worker{
			id:  o.nid,
			pl:  o,
			beg: time.Now(),
		}

		o.wks = append(o.wks, w)
		o.siz.Add(1)
		o.wg.Add(1)

		go w.run()
	}
}

func (o *pool) Shrink(n int) liberr.Error {
	if int(o.siz.Load())-n < o.cfg.Min {
		return ErrorPoolMin.Error(nil)
	}

	for i := 0; i < n; i++ {
		o.qch <- nil
	}

	return nil
}

func (o *pool) Put(c conn.Connection, d time.Duration) liberr.Error {
	if o.stp.Load() {
		return ErrorStopped.Error(nil)
	}

	select {
	case o.qch <- c:
		return nil
	default:
	}

	// every worker is busy and the queue is full: add capacity first when
	// the bound allows it
	if o.cfg.Max < 0 || int(o.siz.Load()) < o.cfg.Max {
		o.Grow(1)
	}

	if d <= 0 {
		select {
		case o.qch <- c:
			return nil
		default:
			return ErrorQueueFull.Error(nil)
		}
	}

	tmr := time.NewTimer(d)
	defer tmr.Stop()

	select {
	case o.qch <- c:
		return nil
	case <-tmr.C:
		return ErrorQueueFull.Error(nil)
	}
}

func (o *pool) Size() int {
	return int(o.siz.Load())
}

func (o *pool) Busy() int {
	return int(o.bsy.Load())
}

func (o *pool) Queued() int {
	return len(o.qch)
}

func (o *pool) Stats() Snapshot {
	return Snapshot{
		Size:         o.Size(),
		Busy:         o.Busy(),
		Queued:       o.Queued(),
		Served:       o.srv.Load(),
		BytesRead:    o.sbr.Load(),
		BytesWritten: o.sbw.Load(),
	}
}

func (o *pool) Stop(d time.Duration) liberr.Error {
	if o.stp.Swap(true) {
		return nil
	}

	o.run.Store(false)

	// sentinels are queued from the side so a saturated queue with stuck
	// workers cannot wedge Stop before the interrupt pass below
	sdn := make(chan struct{})
	defer close(sdn)

	go func() {
		for i := int(o.siz.Load()); i > 0; i-- {
			select {
			case o.qch <- nil:
			case <-sdn:
				return
			}
		}
	}()

	if o.join(d) {
		return nil
	}

	// join timed out: interrupt stragglers by closing the socket they
	// are blocked on
	o.m.Lock()
	for _, w := range o.wks {
		w.interrupt()
	}
	o.m.Unlock()

	if o.join(d) {
		return nil
	}

	o.logger().Entry(loglvl.ErrorLevel, "worker pool stop timed out").Log()
	return ErrorStopTimeout.Error(nil)
}

func (o *pool) join(d time.Duration) bool {
	dne := make(chan struct{})

	go func() {
		o.wg.Wait()
		close(dne)
	}()

	if d <= 0 {
		<-dne
		return true
	}

	tmr := time.NewTimer(d)
	defer tmr.Stop()

	select {
	case <-dne:
		return true
	case <-tmr.C:
		return false
	}
}

func (o *pool) drop(w *worker) {
	o.m.Lock()
	defer o.m.Unlock()

	for i, x := range o.wks {
		if x == w {
			o.wks = append(o.wks[:i], o.wks[i+1:]...)
			break
		}
	}

	o.siz.Add(-1)
}
