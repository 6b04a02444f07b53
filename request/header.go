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
	"io"
	"strings"

	liberr "github.com/nabbar/golib/errors"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/stream"
)

// HeaderReader is the strategy reading the header section off the capped
// stream into a header set. Implementations choose which fields to keep.
type HeaderReader interface {
	ReadHeaders(r stream.Reader, h gateway.Header) liberr.Error
}

// NewHeaderReader returns the default reader accepting every syntactically
// valid field.
func NewHeaderReader() HeaderReader {
	return &headerReader{}
}

// NewDropUnderscoreHeaderReader returns a reader silently discarding any
// field whose name contains an underscore, preventing ambiguity with
// environment style normalized names.
func NewDropUnderscoreHeaderReader() HeaderReader {
	return &headerReader{
		drop: func(name string) bool {
			return strings.ContainsRune(name, '_')
		},
	}
}

type headerReader struct {
	drop func(name string) bool
}

func (o *headerReader) ReadHeaders(r stream.Reader, h gateway.Header) liberr.Error {
	var (
		lstKey string
		lstVal string
		kept   bool
	)

	flush := func() {
		if lstKey != "" && kept {
			h.Add(lstKey, lstVal)
		}
		lstKey, lstVal, kept = "", "", false
	}

	for {
		lin, err := r.ReadLine(0)

		if err != nil {
			if err == io.EOF {
				return ErrorStreamClosed.Error(err)
			} else if stream.IsEntityTooLarge(err) || stream.IsLineTooLong(err) {
				return ErrorHeaderTooLarge.Error(err)
			}
			return ErrorBadHeader.Error(err)
		}

		if len(lin) == 0 {
			flush()
			return nil
		}

		if lin[0] == ' ' || lin[0] == '\t' {
			// obsolete line folding: continuation of the previous value
			if lstKey == "" {
				return ErrorBadHeader.Error(nil)
			}

			lstVal = lstVal + " " + strings.Trim(string(lin), " \t")
			continue
		}

		flush()

		key, val, err := splitHeaderLine(lin)
		if err != nil {
			return ErrorBadHeader.Error(err)
		}

		lstKey, lstVal = key, val
		kept = o.drop == nil || !o.drop(key)
	}
}

func splitHeaderLine(lin []byte) (string, string, error) {
	i := strings.IndexByte(string(lin), ':')

	if i <= 0 {
		return "", "", ErrorBadHeader.Error(nil)
	}

	key := string(lin[:i])

	if !isToken(key) {
		// whitespace before the colon or a forbidden character in the name
		return "", "", ErrorBadHeader.Error(nil)
	}

	val := strings.Trim(string(lin[i+1:]), " \t")

	for _, b := range []byte(val) {
		if b < 0x20 && b != '\t' {
			return "", "", ErrorBadHeader.Error(nil)
		}
	}

	return key, val, nil
}

// isToken reports whether s is a non-empty RFC 7230 token.
func isToken(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}

	return true
}

func isTokenChar(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	}

	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}

	return false
}
