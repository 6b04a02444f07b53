//go:build unix

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
	"errors"
	"net"
	"time"

	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"
	"golang.org/x/sys/unix"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/pool"
)

func (o *mgr) Serve() liberr.Error {
	pol, err := newPoller()

	if err != nil {
		close(o.dne)
		return err
	}

	o.pol = pol
	o.ran.Store(true)
	o.srv.Store(true)
	o.pl.Start()

	defer o.cleanup()

	for o.srv.Load() && !o.stp.Load() {
		o.drainRequeued()

		fds := o.pollSet()

		rdy, perr := o.pol.wait(fds, o.cfg.ExpirationInterval)

		if perr != nil {
			o.logger().Entry(loglvl.ErrorLevel, "readiness poll failed").ErrorAdd(true, perr).Check(loglvl.NilLevel)
			break
		}

		if n := len(rdy); n > 0 && readable(rdy[n-1].Revents) {
			o.pol.drain()
		}

		if !o.srv.Load() || o.stp.Load() {
			break
		}

		o.dispatchReady(rdy)
		o.acceptReady(rdy)
		o.expire()
	}

	if i := o.itr.Load(); i != nil {
		if e, ok := i.(liberr.Error); ok {
			return e
		} else if e, ok := i.(error); ok {
			return liberr.UnknownError.Error(e)
		}
	}

	return nil
}

// pollSet assembles the descriptors watched this tick: the listeners
// (while idle capacity remains) then every idle connection. The self-pipe
// is appended by the poller itself.
func (o *mgr) pollSet() []unix.PollFd {
	fds := make([]unix.PollFd, 0, len(o.lfd)+len(o.idl)+1)

	if len(o.idl) < o.cfg.KeepAliveConnLimit {
		for _, fd := range o.lfd {
			fds = append(fds, unix.PollFd{
				Fd:     int32(fd),
				Events: unix.POLLIN,
			})
		}
	}

	for fd := range o.idl {
		fds = append(fds, unix.PollFd{
			Fd:     int32(fd),
			Events: unix.POLLIN,
		})
	}

	return fds
}

// drainRequeued pulls connections returned by workers. A connection with
// bytes already buffered skips the idle set entirely: the next request is
// pipelined and ready now.
func (o *mgr) drainRequeued() {
	for {
		select {
		case c := <-o.rqc:
			if c.IsClosed() {
				continue
			}

			if c.HasData() {
				o.dispatch(c)
			} else {
				o.park(c)
			}
		default:
			return
		}
	}
}

// park registers a connection in the idle keep-alive set. Beyond the
// tracking limit the connection is dispatched instead of tracked, keeping
// the set bounded.
func (o *mgr) park(c conn.Connection) {
	if len(o.idl) >= o.cfg.KeepAliveConnLimit {
		o.dispatch(c)
		return
	}

	fd := c.Fd()

	if fd < 0 {
		_ = c.Close()
		return
	}

	// re-registering the same descriptor is idempotent on the map
	o.idl[fd] = c
	o.cntIdl.Store(int64(len(o.idl)))
}

func (o *mgr) unpark(fd int) (conn.Connection, bool) {
	c, ok := o.idl[fd]

	if ok {
		delete(o.idl, fd)
		o.cntIdl.Store(int64(len(o.idl)))
	}

	return c, ok
}

// dispatchReady hands every readable idle connection to the pool.
func (o *mgr) dispatchReady(rdy []unix.PollFd) {
	for _, p := range rdy {
		if !readable(p.Revents) {
			continue
		}

		if c, ok := o.unpark(int(p.Fd)); ok {
			o.dispatch(c)
		}
	}
}

// dispatch hands one ready connection to the worker pool within the
// accepted queue budget; saturation is answered with the fixed 503.
func (o *mgr) dispatch(c conn.Connection) {
	err := o.pl.Put(c, o.cfg.AcceptedQueueTimeout)

	if err == nil {
		return
	}

	if pool.IsQueueFull(err) {
		o.cntOvl.Add(1)
		c.Overloaded(o.cfg.AcceptedQueueTimeout)
		return
	}

	_ = c.Close()
}

// acceptReady accepts a bounded batch on every readable listener.
func (o *mgr) acceptReady(rdy []unix.PollFd) {
	for _, p := range rdy {
		if !readable(p.Revents) {
			continue
		}

		for i, fd := range o.lfd {
			if int(p.Fd) == fd {
				o.acceptBatch(o.lst[i])
			}
		}
	}
}

func (o *mgr) acceptBatch(l net.Listener) {
	for i := 0; i < acceptBatch; i++ {
		setListenerDeadline(l, time.Now().Add(time.Millisecond))

		s, err := l.Accept()

		setListenerDeadline(l, time.Time{})

		if err != nil {
			var ne net.Error

			if errors.As(err, &ne) && ne.Timeout() {
				return
			}

			if !o.stp.Load() {
				o.logger().Entry(loglvl.WarnLevel, "accept failed").ErrorAdd(true, err).Check(loglvl.NilLevel)
			}

			return
		}

		o.cntAcc.Add(1)

		if o.cfg.NoDelay {
			if t, ok := s.(*net.TCPConn); ok {
				_ = t.SetNoDelay(true)
			}
		}

		c := conn.New(s, o.cfg.Conn)

		// a fresh connection waits in the idle set until its first bytes
		// arrive, so a slow client never occupies a worker
		o.park(c)
	}
}

func setListenerDeadline(l net.Listener, t time.Time) {
	switch x := l.(type) {
	case *net.TCPListener:
		_ = x.SetDeadline(t)
	case *net.UnixListener:
		_ = x.SetDeadline(t)
	}
}

// expire closes connections idle beyond the timeout.
func (o *mgr) expire() {
	if o.cfg.Timeout <= 0 {
		return
	}

	now := time.Now()

	for fd, c := range o.idl {
		if now.Sub(c.LastUsed()) > o.cfg.Timeout {
			delete(o.idl, fd)
			o.cntExp.Add(1)
			_ = c.Close()
		}
	}

	o.cntIdl.Store(int64(len(o.idl)))
}

// cleanup unwinds the loop: listeners first so no socket is accepted
// during the drain, then the idle set, the worker pool, and the requeue
// channel remainder.
func (o *mgr) cleanup() {
	o.srv.Store(false)

	for _, l := range o.lst {
		_ = l.Close()
	}

	for fd, c := range o.idl {
		delete(o.idl, fd)
		_ = c.Close()
	}

	o.cntIdl.Store(0)

	_ = o.pl.Stop(o.cfg.ShutdownTimeout)

	for {
		select {
		case c := <-o.rqc:
			_ = c.Close()
		default:
			o.pol.close()
			close(o.dne)
			return
		}
	}
}
