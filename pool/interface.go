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
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/gateway"
)

const (
	// DefaultMin is the worker count kept alive when the configuration
	// gives none.
	DefaultMin = 10

	// DefaultQueueSize bounds the ready queue when the configuration
	// gives no capacity.
	DefaultQueueSize = 64
)

// FuncRequeue returns a keep-alive connection to its manager after a
// successful request cycle.
type FuncRequeue func(c conn.Connection)

// Config bounds the pool.
type Config struct {
	// Min is the worker count maintained from Start until Stop.
	Min int

	// Max caps the worker count; negative means unbounded.
	Max int

	// QueueSize is the ready queue capacity.
	QueueSize int

	// Logger provides the log sink.
	Logger liblog.FuncLog
}

// Snapshot is a point-in-time view of the pool gauges and counters.
type Snapshot struct {
	Size         int
	Busy         int
	Queued       int
	Served       uint64
	BytesRead    uint64
	BytesWritten uint64
}

// Pool is the bounded elastic worker set over the ready queue.
type Pool interface {
	// Start spawns the minimum worker set. Starting a started pool is a
	// no-op.
	Start()

	// Grow spawns up to n fresh workers within the maximum bound.
	Grow(n int)

	// Shrink drains n workers through shutdown sentinels, keeping at
	// least the minimum alive.
	Shrink(n int) liberr.Error

	// Put hands a ready connection to the workers, blocking at most d.
	// Failure with ErrorQueueFull means the pool is saturated at its
	// maximum size: the caller answers 503 and closes.
	Put(c conn.Connection, d time.Duration) liberr.Error

	// Size returns the live worker count.
	Size() int

	// Busy returns the workers currently servicing a request.
	Busy() int

	// Queued returns the ready connections waiting for a worker.
	Queued() int

	// Stats returns the pool counters.
	Stats() Snapshot

	// Stop drains every worker and joins them within d, interrupting
	// stragglers by closing their in-service socket. Idempotent.
	Stop(d time.Duration) liberr.Error
}

// New builds a pool servicing the ready queue with the given gateway
// handler, returning keep-alive connections through rq.
func New(h gateway.Handler, rq FuncRequeue, cfg Config) Pool {
	if cfg.Min <= 0 {
		cfg.Min = DefaultMin
	}

	if cfg.Max > 0 && cfg.Max < cfg.Min {
		cfg.Max = cfg.Min
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	return &pool{
		cfg: cfg,
		hdl: h,
		rqf: rq,
		qch: make(chan conn.Connection, cfg.QueueSize),
	}
}
