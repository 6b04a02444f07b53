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
	"syscall"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/pool"
)

const (
	// DefaultExpirationInterval is the poll tick when the configuration
	// gives none.
	DefaultExpirationInterval = 500 * time.Millisecond

	// DefaultKeepAliveConnLimit bounds the idle keep-alive set when the
	// configuration gives none.
	DefaultKeepAliveConnLimit = 10

	// acceptBatch caps how many sockets one readiness event accepts.
	acceptBatch = 32
)

// Config tunes the readiness loop.
type Config struct {
	// ExpirationInterval is the poll tick and the idle sweep period.
	ExpirationInterval time.Duration

	// Timeout expires a keep-alive connection idle longer than this.
	Timeout time.Duration

	// ShutdownTimeout bounds the worker pool join during Stop.
	ShutdownTimeout time.Duration

	// AcceptedQueueTimeout bounds the hand-off of a ready connection to
	// the pool; expiry answers 503.
	AcceptedQueueTimeout time.Duration

	// KeepAliveConnLimit bounds the idle keep-alive set.
	KeepAliveConnLimit int

	// NoDelay disables Nagle on accepted TCP sockets.
	NoDelay bool

	// Conn is the per-connection policy applied on accept.
	Conn conn.Options

	// Logger provides the log sink.
	Logger liblog.FuncLog
}

// Snapshot is a point-in-time view of the manager counters.
type Snapshot struct {
	Accepted  uint64
	Expired   uint64
	Overloads uint64
	Idle      int
}

// Manager is the selector-style loop owning listeners and idle
// connections.
type Manager interface {
	// Serve runs the loop until Stop or Interrupt. It returns the
	// interrupt error when one was assigned, nil on a clean stop.
	Serve() liberr.Error

	// Requeue returns a keep-alive connection to the idle set after a
	// worker completed a request cycle on it. Ownership transfers back to
	// the manager; the loop is woken so buffered pipelined requests are
	// dispatched without waiting a tick.
	Requeue(c conn.Connection)

	// Stop ends the loop, drains the idle set, stops the pool and closes
	// the listeners. Idempotent; it waits for the loop to unwind.
	Stop()

	// Interrupt assigns the error Serve re-raises after cleanup.
	Interrupt(err error)

	// IsServing reports whether the loop runs.
	IsServing() bool

	// Idle returns the idle keep-alive connection count.
	Idle() int

	// Stats returns the manager counters.
	Stats() Snapshot
}

// New builds a manager over the given listeners and worker pool.
func New(ls []net.Listener, pl pool.Pool, cfg Config) (Manager, liberr.Error) {
	if len(ls) == 0 || pl == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	if cfg.ExpirationInterval <= 0 {
		cfg.ExpirationInterval = DefaultExpirationInterval
	}

	if cfg.KeepAliveConnLimit <= 0 {
		cfg.KeepAliveConnLimit = DefaultKeepAliveConnLimit
	}

	o := &mgr{
		cfg: cfg,
		pl:  pl,
		lst: ls,
		idl: make(map[int]conn.Connection, cfg.KeepAliveConnLimit),
		rqc: make(chan conn.Connection, cfg.KeepAliveConnLimit+acceptBatch),
		dne: make(chan struct{}),
	}

	for _, l := range ls {
		fd, err := listenerFd(l)

		if err != nil {
			return nil, err
		}

		o.lfd = append(o.lfd, fd)
	}

	return o, nil
}

func listenerFd(l net.Listener) (int, liberr.Error) {
	sc, ok := l.(syscall.Conn)

	if !ok {
		return -1, ErrorListenerFd.Error(nil)
	}

	raw, err := sc.SyscallConn()

	if err != nil {
		return -1, ErrorListenerFd.Error(err)
	}

	var fd = -1

	if err = raw.Control(func(f uintptr) { fd = int(f) }); err != nil || fd < 0 {
		return -1, ErrorListenerFd.Error(err)
	}

	return fd, nil
}
