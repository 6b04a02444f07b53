//go:build linux

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

package peercreds

import (
	"net"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

func resolveUnix(c *net.UnixConn) (*creds, liberr.Error) {
	raw, err := c.SyscallConn()

	if err != nil {
		return nil, ErrorSyscall.Error(err)
	}

	var (
		ucr *unix.Ucred
		uce error
	)

	err = raw.Control(func(fd uintptr) {
		ucr, uce = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})

	if err != nil {
		return nil, ErrorSyscall.Error(err)
	}

	if uce != nil {
		return nil, ErrorSyscall.Error(uce)
	}

	return &creds{
		pid: ucr.Pid,
		uid: ucr.Uid,
		gid: ucr.Gid,
	}, nil
}
