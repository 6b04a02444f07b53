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

package server

import (
	"net"
	"os"
	"strings"

	liberr "github.com/nabbar/golib/errors"
	"golang.org/x/sys/unix"
)

// buildListener binds the configured address. The TCP path goes through a
// raw socket so the listen backlog, SO_REUSEADDR and SO_REUSEPORT are
// under explicit control.
func (o *srv) buildListener() (net.Listener, liberr.Error) {
	if o.cfg.IsUnixSocket() {
		return o.listenLocal()
	}

	return o.listenStream()
}

func (o *srv) listenLocal() (net.Listener, liberr.Error) {
	var name = o.cfg.Listen

	if !strings.HasPrefix(name, "@") {
		// a stale socket file from a previous run blocks the bind
		_ = os.Remove(name)
	}

	lst, err := net.Listen("unix", name)

	if err != nil {
		return nil, ErrorListen.Error(err)
	}

	if !strings.HasPrefix(name, "@") && o.cfg.UnixFileMode != 0 {
		if err = os.Chmod(name, os.FileMode(o.cfg.UnixFileMode)); err != nil {
			_ = lst.Close()
			return nil, ErrorListen.Error(err)
		}
	}

	return lst, nil
}

func (o *srv) listenStream() (net.Listener, liberr.Error) {
	adr, err := net.ResolveTCPAddr(o.cfg.network(), o.cfg.Listen)

	if err != nil {
		return nil, ErrorBindAddress.Error(err)
	}

	fam, sad, err := sockaddr(adr, o.cfg.network())

	if err != nil {
		return nil, ErrorBindAddress.Error(err)
	}

	fd, err := unix.Socket(fam, unix.SOCK_STREAM, 0)

	if err != nil {
		return nil, ErrorListen.Error(err)
	}

	_ = unix.SetNonblock(fd, true)
	unix.CloseOnExec(fd)

	fail := func(e error) (net.Listener, liberr.Error) {
		_ = unix.Close(fd)
		return nil, ErrorListen.Error(e)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail(err)
	}

	if o.cfg.ReusePort {
		if err = setReusePort(fd); err != nil {
			return fail(err)
		}
	}

	if fam == unix.AF_INET6 && adr.IP == nil {
		// a wildcard bind stays dual-stack
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
	}

	if err = unix.Bind(fd, sad); err != nil {
		return fail(err)
	}

	bkl := o.cfg.RequestQueueSize

	if bkl <= 0 {
		bkl = unix.SOMAXCONN
	}

	if err = unix.Listen(fd, bkl); err != nil {
		return fail(err)
	}

	fil := os.NewFile(uintptr(fd), "listen:"+o.cfg.Listen)
	lst, err := net.FileListener(fil)

	// the net package duplicated the descriptor
	_ = fil.Close()

	if err != nil {
		return nil, ErrorListen.Error(err)
	}

	return lst, nil
}

func sockaddr(adr *net.TCPAddr, network string) (int, unix.Sockaddr, error) {
	ip := adr.IP

	if v4 := ip.To4(); v4 != nil && network != "tcp6" {
		sad := &unix.SockaddrInet4{Port: adr.Port}
		copy(sad.Addr[:], v4)
		return unix.AF_INET, sad, nil
	}

	if ip == nil && network == "tcp4" {
		return unix.AF_INET, &unix.SockaddrInet4{Port: adr.Port}, nil
	}

	sad := &unix.SockaddrInet6{Port: adr.Port}

	if ip != nil {
		copy(sad.Addr[:], ip.To16())
	}

	if adr.Zone != "" {
		if ifi, err := net.InterfaceByName(adr.Zone); err == nil {
			sad.ZoneId = uint32(ifi.Index)
		}
	}

	return unix.AF_INET6, sad, nil
}
