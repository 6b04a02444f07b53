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

import "io"

type lenReader struct {
	r Reader
	n int64
}

func (o *lenReader) Read(p []byte) (int, error) {
	if o.n <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > o.n {
		p = p[:o.n]
	}

	n, err := o.r.Read(p)
	o.n -= int64(n)

	if err == io.EOF && o.n > 0 {
		// the peer went away before sending the declared length
		return n, ErrorClientDisconnect.Error(io.ErrUnexpectedEOF)
	}

	if err == nil && o.n == 0 {
		return n, io.EOF
	}

	return n, err
}

func (o *lenReader) Remaining() int64 {
	return o.n
}

type emptyBody struct{}

func (emptyBody) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (emptyBody) Remaining() int64 {
	return 0
}
