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

import "github.com/nabbar/golib/errors"

const (
	ErrorParamEmpty errors.CodeError = iota + errors.MinAvailable
	ErrorLineTooLong
	ErrorEntityTooLarge
	ErrorClientDisconnect
	ErrorMalformedChunk
	ErrorBadTrailer
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorParamEmpty)
	errors.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorLineTooLong:
		return "line exceeds the allowed size"
	case ErrorEntityTooLarge:
		return "cumulative read size exceeds the allowed maximum"
	case ErrorClientDisconnect:
		return "client closed the connection before the declared body was complete"
	case ErrorMalformedChunk:
		return "invalid chunked transfer coding framing"
	case ErrorBadTrailer:
		return "invalid trailer section after last chunk"
	}

	return ""
}

func hasCode(e error, code errors.CodeError) bool {
	if e == nil {
		return false
	} else if err, ok := e.(errors.Error); !ok {
		return false
	} else {
		return err.HasCode(code)
	}
}

// IsLineTooLong reports whether e carries the ErrorLineTooLong code.
func IsLineTooLong(e error) bool {
	return hasCode(e, ErrorLineTooLong)
}

// IsEntityTooLarge reports whether e carries the ErrorEntityTooLarge code.
func IsEntityTooLarge(e error) bool {
	return hasCode(e, ErrorEntityTooLarge)
}

// IsClientDisconnect reports whether e carries the ErrorClientDisconnect code.
func IsClientDisconnect(e error) bool {
	return hasCode(e, ErrorClientDisconnect)
}

// IsMalformedChunk reports whether e carries the ErrorMalformedChunk code.
func IsMalformedChunk(e error) bool {
	return hasCode(e, ErrorMalformedChunk)
}
