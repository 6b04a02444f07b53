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
	"os/user"
	"strconv"

	liberr "github.com/nabbar/golib/errors"
)

// Creds exposes the identity of a local socket peer.
type Creds interface {
	// Pid returns the peer process id.
	Pid() int32

	// Uid returns the peer effective user id.
	Uid() uint32

	// Gid returns the peer effective group id.
	Gid() uint32

	// User returns the resolved user name, empty when name resolution was
	// not requested or failed.
	User() string

	// Group returns the resolved group name, empty when name resolution
	// was not requested or failed.
	Group() string

	// Environ serializes the credentials into request environment keys.
	Environ() map[string]string
}

// Resolve reads the peer credentials of a local socket connection. With
// resolve set, user and group names are looked up in the system databases.
// Non-local sockets and unsupported platforms fail with ErrorUnavailable.
func Resolve(c net.Conn, resolve bool) (Creds, liberr.Error) {
	u, ok := c.(*net.UnixConn)

	if !ok {
		return nil, ErrorUnavailable.Error(nil)
	}

	o, err := resolveUnix(u)

	if err != nil {
		return nil, err
	}

	if resolve {
		o.lookupNames()
	}

	return o, nil
}

type creds struct {
	pid int32
	uid uint32
	gid uint32
	usr string
	grp string
}

func (o *creds) Pid() int32 {
	return o.pid
}

func (o *creds) Uid() uint32 {
	return o.uid
}

func (o *creds) Gid() uint32 {
	return o.gid
}

func (o *creds) User() string {
	return o.usr
}

func (o *creds) Group() string {
	return o.grp
}

func (o *creds) lookupNames() {
	if u, err := user.LookupId(strconv.FormatUint(uint64(o.uid), 10)); err == nil {
		o.usr = u.Username
	}

	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(o.gid), 10)); err == nil {
		o.grp = g.Name
	}
}

func (o *creds) Environ() map[string]string {
	env := map[string]string{
		"X_REMOTE_PID": strconv.FormatInt(int64(o.pid), 10),
		"X_REMOTE_UID": strconv.FormatUint(uint64(o.uid), 10),
		"X_REMOTE_GID": strconv.FormatUint(uint64(o.gid), 10),
	}

	if o.usr != "" {
		env["X_REMOTE_USER"] = o.usr
		env["REMOTE_USER"] = o.usr
	}

	if o.grp != "" {
		env["X_REMOTE_GROUP"] = o.grp
	}

	return env
}
