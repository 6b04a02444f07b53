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

package stream

import (
	"bufio"
	"io"
	"sync/atomic"
)

type reader struct {
	b *bufio.Reader
	c *atomic.Uint64
}

func (o *reader) Read(p []byte) (int, error) {
	n, err := o.b.Read(p)

	if n > 0 {
		o.c.Add(uint64(n))
	}

	return n, err
}

func (o *reader) ReadLine(max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultLineSize
	}

	var res []byte

	for {
		frg, err := o.b.ReadSlice('\n')

		if len(frg) > 0 {
			o.c.Add(uint64(len(frg)))
			res = append(res, frg...)
		}

		if err == nil {
			break
		} else if err == bufio.ErrBufferFull {
			if int64(len(res)) > max {
				return nil, ErrorLineTooLong.Error(nil)
			}
			continue
		} else if err == io.EOF && len(res) > 0 {
			// stream ended without a terminator, keep what was read
			break
		} else {
			return nil, err
		}
	}

	res = trimEOL(res)

	if int64(len(res)) > max {
		return nil, ErrorLineTooLong.Error(nil)
	}

	return res, nil
}

func (o *reader) HasData() bool {
	return o.b.Buffered() > 0
}

func (o *reader) BytesRead() uint64 {
	return o.c.Load()
}

func trimEOL(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}

	if n := len(p); n > 0 && p[n-1] == '\r' {
		p = p[:n-1]
	}

	return p
}
