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

type capped struct {
	r    Reader
	max  int64
	seen int64
}

// Read passes through until the cumulative content consumed would exceed
// the budget. A read landing exactly on the budget still succeeds.
func (o *capped) Read(p []byte) (int, error) {
	if o.max > 0 && o.seen >= o.max {
		return 0, ErrorEntityTooLarge.Error(nil)
	}

	if o.max > 0 && int64(len(p)) > o.max-o.seen {
		p = p[:o.max-o.seen]
	}

	n, err := o.r.Read(p)
	o.seen += int64(n)

	return n, err
}

func (o *capped) ReadLine(max int64) ([]byte, error) {
	if o.max <= 0 {
		res, err := o.r.ReadLine(max)
		o.seen += int64(len(res))
		return res, err
	}

	rem := o.max - o.seen

	if rem <= 0 {
		return nil, ErrorEntityTooLarge.Error(nil)
	}

	bdg := rem

	if max > 0 && max < bdg {
		bdg = max
	}

	// one extra byte so that a line landing exactly on the budget is told
	// apart from one overflowing it
	res, err := o.r.ReadLine(bdg + 1)

	if err != nil {
		if IsLineTooLong(err) {
			return nil, ErrorEntityTooLarge.Error(err)
		}

		return nil, err
	}

	o.seen += int64(len(res))

	if o.seen > o.max {
		return nil, ErrorEntityTooLarge.Error(nil)
	}

	return res, nil
}

func (o *capped) HasData() bool {
	return o.r.HasData()
}

func (o *capped) BytesRead() uint64 {
	return o.r.BytesRead()
}

func (o *capped) Seen() int64 {
	return o.seen
}
