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
	"time"

	"github.com/sabouaram/httpsrv/conn"
)

// worker is one parallel execution context pulling ready connections and
// running one request cycle per pull.
type worker struct {
	id  uint64
	pl  *pool
	beg time.Time

	m   sync.Mutex
	cur conn.Connection
}

func (w *worker) run() {
	defer func() {
		w.pl.drop(w)
		w.pl.wg.Done()
	}()

	for c := range w.pl.qch {
		if c == nil {
			// shutdown sentinel
			return
		}

		w.serve(c)
	}
}

func (w *worker) serve(c conn.Connection) {
	w.setCurrent(c)
	w.pl.bsy.Add(1)

	br0 := c.BytesRead()
	bw0 := c.BytesWritten()

	keep := c.Communicate(w.pl.hdl)

	w.pl.sbr.Add(c.BytesRead() - br0)
	w.pl.sbw.Add(c.BytesWritten() - bw0)
	w.pl.srv.Add(1)
	w.pl.bsy.Add(-1)
	w.setCurrent(nil)

	if keep && w.pl.rqf != nil && !w.pl.stp.Load() {
		w.pl.rqf(c)
	} else {
		_ = c.Close()
	}
}

func (w *worker) setCurrent(c conn.Connection) {
	w.m.Lock()
	w.cur = c
	w.m.Unlock()
}

// interrupt closes the socket the worker is blocked on so a stuck stop can
// complete.
func (w *worker) interrupt() {
	w.m.Lock()
	defer w.m.Unlock()

	if w.cur != nil {
		_ = w.cur.Close()
	}
}
