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
	"bytes"
	"io"
)

const (
	maxChunkLine   = 4096
	maxTrailerLine = 16 * 1024
)

type chunkedReader struct {
	r    Reader
	max  int64
	chn  int64 // unread bytes in the current chunk
	tot  int64 // cumulative payload bytes delivered
	done bool
}

func (o *chunkedReader) Read(p []byte) (int, error) {
	if o.done {
		return 0, io.EOF
	}

	if o.chn == 0 {
		if err := o.nextChunk(); err != nil {
			return 0, err
		}

		if o.done {
			return 0, io.EOF
		}
	}

	if int64(len(p)) > o.chn {
		p = p[:o.chn]
	}

	n, err := o.r.Read(p)
	o.chn -= int64(n)
	o.tot += int64(n)

	if o.max > 0 && o.tot > o.max {
		return n, ErrorEntityTooLarge.Error(nil)
	}

	if err == io.EOF {
		return n, ErrorClientDisconnect.Error(io.ErrUnexpectedEOF)
	}

	if err == nil && o.chn == 0 {
		if err = o.chunkEnd(); err != nil {
			return n, err
		}
	}

	return n, err
}

func (o *chunkedReader) Remaining() int64 {
	return -1
}

// nextChunk parses one hex size line, discarding any chunk extension. A
// zero size switches to the trailer section and marks the body complete.
func (o *chunkedReader) nextChunk() error {
	lin, err := o.r.ReadLine(maxChunkLine)

	if err != nil {
		if err == io.EOF {
			return ErrorClientDisconnect.Error(io.ErrUnexpectedEOF)
		}
		return ErrorMalformedChunk.Error(err)
	}

	if i := bytes.IndexByte(lin, ';'); i >= 0 {
		lin = lin[:i]
	}

	lin = bytes.TrimRight(lin, " \t")

	siz, err := parseHexUint(lin)
	if err != nil {
		return ErrorMalformedChunk.Error(err)
	}

	if siz == 0 {
		o.done = true
		return o.readTrailer()
	}

	if o.max > 0 && o.tot+int64(siz) > o.max {
		return ErrorEntityTooLarge.Error(nil)
	}

	o.chn = int64(siz)
	return nil
}

// chunkEnd consumes the CRLF that closes each chunk payload.
func (o *chunkedReader) chunkEnd() error {
	var crlf [2]byte

	if _, err := io.ReadFull(o.r, crlf[:]); err != nil {
		return ErrorClientDisconnect.Error(err)
	}

	if crlf[0] == '\r' && crlf[1] == '\n' {
		return nil
	}

	return ErrorMalformedChunk.Error(nil)
}

// readTrailer consumes trailer field lines up to the blank line ending the
// body. Trailer content is discarded.
func (o *chunkedReader) readTrailer() error {
	for {
		lin, err := o.r.ReadLine(maxTrailerLine)

		if err != nil {
			if err == io.EOF {
				return ErrorClientDisconnect.Error(io.ErrUnexpectedEOF)
			}
			return ErrorBadTrailer.Error(err)
		}

		if len(lin) == 0 {
			return nil
		}
	}
}

func parseHexUint(v []byte) (uint64, error) {
	if len(v) == 0 {
		return 0, ErrorMalformedChunk.Error(nil)
	}

	var n uint64

	for i, b := range v {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, ErrorMalformedChunk.Error(nil)
		}

		if i == 16 {
			return 0, ErrorMalformedChunk.Error(nil)
		}

		n <<= 4
		n |= uint64(b)
	}

	return n, nil
}
