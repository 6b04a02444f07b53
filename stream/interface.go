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

const (
	// BlockSize is the flush granularity of the socket writer and the
	// default buffer size of the socket reader.
	BlockSize = 16 * 1024

	// DefaultLineSize bounds a single protocol line when the caller gives
	// no tighter limit.
	DefaultLineSize = 64 * 1024
)

// Reader is a counting buffered reader over a socket.
type Reader interface {
	io.Reader

	// ReadLine reads up to the next LF, bounded by max bytes of line
	// content. The returned slice excludes the trailing CR LF / LF. A line
	// longer than max fails with ErrorLineTooLong; EOF before any byte
	// returns io.EOF.
	ReadLine(max int64) ([]byte, error)

	// HasData reports whether bytes are already buffered. A connection
	// must not be parked in the idle selector set while this is true.
	HasData() bool

	// BytesRead returns the cumulative number of bytes consumed from the
	// underlying socket, monotonically non-decreasing.
	BytesRead() uint64
}

// Capped is a Reader enforcing a cumulative read budget, used for the
// request line and header section.
type Capped interface {
	Reader

	// Seen returns the number of content bytes consumed through the cap.
	Seen() int64
}

// Body is a framed request body handed to the gateway.
type Body interface {
	io.Reader

	// Remaining returns the declared bytes left, or -1 when the framing
	// does not declare a length up front.
	Remaining() int64
}

// Writer is a counting buffered writer over a socket.
type Writer interface {
	io.Writer

	// SendAll writes the whole buffer, retrying partial writes, or fails.
	SendAll(p []byte) error

	// Flush forces any buffered bytes onto the socket.
	Flush() error

	// BytesWritten returns the cumulative number of bytes accepted,
	// monotonically non-decreasing.
	BytesWritten() uint64
}

// NewReader wraps r in a counting buffered Reader. A size at or below zero
// selects BlockSize.
func NewReader(r io.Reader, size int) Reader {
	if size <= 0 {
		size = BlockSize
	}

	return &reader{
		b: bufio.NewReaderSize(r, size),
		c: new(atomic.Uint64),
	}
}

// NewCapped wraps r with a cumulative budget of max content bytes.
func NewCapped(r Reader, max int64) Capped {
	return &capped{
		r:   r,
		max: max,
	}
}

// NewLenReader frames a body of the declared length over r.
func NewLenReader(r Reader, length int64) Body {
	return &lenReader{
		r: r,
		n: length,
	}
}

// NewChunkedReader frames a chunked transfer coding body over r, bounding
// the cumulative payload by max bytes.
func NewChunkedReader(r Reader, max int64) Body {
	return &chunkedReader{
		r:   r,
		max: max,
	}
}

// NewEmptyBody returns a zero-length Body.
func NewEmptyBody() Body {
	return emptyBody{}
}

// NewWriter wraps w in a counting buffered Writer. A size at or below zero
// selects BlockSize.
func NewWriter(w io.Writer, size int) Writer {
	if size <= 0 {
		size = BlockSize
	}

	return &writer{
		b: bufio.NewWriterSize(w, size),
		c: new(atomic.Uint64),
	}
}
