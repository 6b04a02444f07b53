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

package request

import (
	"strings"

	liberr "github.com/nabbar/golib/errors"
)

// parseLine validates one request line and fills the method, target and
// protocol fields. Errors carry the code deciding the response status.
func (o *request) parseLine(lin string) liberr.Error {
	if len(lin) == 0 {
		return ErrorBadRequestLine.Error(nil)
	}

	if lin[0] == ' ' || lin[0] == '\t' {
		return ErrorBadRequestLine.Error(nil)
	}

	prt := strings.Split(lin, " ")

	if len(prt) != 3 {
		return ErrorBadRequestLine.Error(nil)
	}

	if !isToken(prt[0]) {
		return ErrorBadRequestLine.Error(nil)
	}

	o.mtd = prt[0]
	o.head = o.mtd == "HEAD"

	if err := o.parseVersion(prt[2]); err != nil {
		return err
	}

	return o.parseTarget(prt[1])
}

func (o *request) parseVersion(v string) liberr.Error {
	if !strings.HasPrefix(v, "HTTP/") {
		return ErrorBadVersion.Error(nil)
	}

	v = v[len("HTTP/"):]

	// a major-only version like HTTP/1 is malformed, not unsupported
	if len(v) != 3 || v[1] != '.' {
		return ErrorBadVersion.Error(nil)
	}

	if v[0] < '0' || v[0] > '9' || v[2] < '0' || v[2] > '9' {
		return ErrorBadVersion.Error(nil)
	}

	o.maj = int(v[0] - '0')
	o.min = int(v[2] - '0')

	if o.maj != 1 {
		return ErrorVersionNotSupported.Error(nil)
	}

	// responses speak at most HTTP/1.1 whatever the request minor is
	o.rMj = 1
	if o.min >= 1 {
		o.rMn = 1
	} else {
		o.rMn = 0
	}

	return nil
}

func (o *request) parseTarget(t string) liberr.Error {
	if t == "" {
		return ErrorBadRequestLine.Error(nil)
	}

	for i := 0; i < len(t); i++ {
		if t[i] <= 0x20 || t[i] == 0x7f {
			return ErrorBadRequestLine.Error(nil)
		}
	}

	o.uri = t

	switch {
	case t == "*":
		// asterisk-form only pairs with OPTIONS
		if o.mtd != "OPTIONS" {
			return ErrorBadRequestLine.Error(nil)
		}
		return nil

	case o.mtd == "CONNECT":
		// authority-form is a proxy operation
		if !o.opt.Proxy {
			return ErrorMethodNotAllowed.Error(nil)
		}
		o.aut = t
		return nil

	case t[0] == '/':
		return o.splitPath(t)

	default:
		return o.parseAbsolute(t)
	}
}

func (o *request) splitPath(t string) liberr.Error {
	if i := strings.IndexByte(t, '?'); i >= 0 {
		o.pth, o.qry = t[:i], t[i+1:]
	} else {
		o.pth = t
	}

	if o.pth == "" {
		return ErrorBadRequestLine.Error(nil)
	}

	return nil
}

// parseAbsolute handles absolute-form targets. Outside proxy mode the
// authority is kept for the environment and the path component is served.
func (o *request) parseAbsolute(t string) liberr.Error {
	i := strings.Index(t, "://")

	if i <= 0 || !isScheme(t[:i]) {
		return ErrorBadRequestLine.Error(nil)
	}

	rst := t[i+3:]

	if rst == "" {
		return ErrorBadRequestLine.Error(nil)
	}

	if j := strings.IndexByte(rst, '/'); j >= 0 {
		o.aut = rst[:j]
		return o.splitPath(rst[j:])
	}

	// an authority with no path serves the root
	if k := strings.IndexByte(rst, '?'); k >= 0 {
		o.aut, o.qry = rst[:k], rst[k+1:]
	} else {
		o.aut = rst
	}

	if o.aut == "" {
		return ErrorBadRequestLine.Error(nil)
	}

	o.pth = "/"
	return nil
}

func isScheme(s string) bool {
	if len(s) == 0 {
		return false
	}

	if !isAlpha(s[0]) {
		return false
	}

	for i := 1; i < len(s); i++ {
		b := s[i]
		if !isAlpha(b) && (b < '0' || b > '9') && b != '+' && b != '-' && b != '.' {
			return false
		}
	}

	return true
}

func isAlpha(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
