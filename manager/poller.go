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
	"time"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

// poller multiplexes readability over the listeners, the idle keep-alive
// connections and a self-pipe used to wake the loop from other threads.
type poller struct {
	rfd int
	wfd int
}

func newPoller() (*poller, liberr.Error) {
	var fds [2]int

	if err := unix.Pipe(fds[:]); err != nil {
		return nil, ErrorPollerInit.Error(err)
	}

	for _, fd := range fds {
		_ = unix.SetNonblock(fd, true)
		unix.CloseOnExec(fd)
	}

	return &poller{
		rfd: fds[0],
		wfd: fds[1],
	}, nil
}

// wake makes the current or next poll return immediately. Safe from any
// goroutine.
func (o *poller) wake() {
	_, _ = unix.Write(o.wfd, []byte{0x1})
}

// drain empties the self-pipe after a wake.
func (o *poller) drain() {
	var buf [64]byte

	for {
		if n, err := unix.Read(o.rfd, buf[:]); n <= 0 || err != nil {
			return
		}
	}
}

// wait polls the given descriptors for readability within the tick
// duration. The self-pipe is appended last.
func (o *poller) wait(fds []unix.PollFd, d time.Duration) ([]unix.PollFd, liberr.Error) {
	fds = append(fds, unix.PollFd{
		Fd:     int32(o.rfd),
		Events: unix.POLLIN,
	})

	tmo := int(d / time.Millisecond)

	if tmo <= 0 {
		tmo = 1
	}

	for {
		n, err := unix.Poll(fds, tmo)

		if err == unix.EINTR {
			continue
		}

		if err != nil {
			return nil, ErrorPollerWait.Error(err)
		}

		if n >= 0 {
			return fds, nil
		}
	}
}

func (o *poller) close() {
	_ = unix.Close(o.rfd)
	_ = unix.Close(o.wfd)
}

// readable reports whether the descriptor saw data, a hangup or an error:
// every case needs the connection pulled out of the idle set.
func readable(ev int16) bool {
	return ev&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
}
