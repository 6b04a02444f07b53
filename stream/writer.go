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
	"sync/atomic"
)

type writer struct {
	b *bufio.Writer
	c *atomic.Uint64
}

func (o *writer) Write(p []byte) (int, error) {
	n, err := o.b.Write(p)

	if n > 0 {
		o.c.Add(uint64(n))
	}

	if err != nil {
		return n, err
	}

	// keep latency bounded without flushing every small write
	if o.b.Buffered() >= BlockSize {
		if err = o.b.Flush(); err != nil {
			return n, err
		}
	}

	return n, nil
}

func (o *writer) SendAll(p []byte) error {
	// bufio retries partial writes internally, a short Write always
	// carries the error
	for len(p) > 0 {
		n, err := o.Write(p)

		if err != nil {
			return err
		}

		p = p[n:]
	}

	return nil
}

func (o *writer) Flush() error {
	return o.b.Flush()
}

func (o *writer) BytesWritten() uint64 {
	return o.c.Load()
}
