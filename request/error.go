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

import "github.com/nabbar/golib/errors"

const (
	ErrorParamEmpty errors.CodeError = iota + errors.MinAvailable + 60
	ErrorBadRequestLine
	ErrorBadHeader
	ErrorBadVersion
	ErrorVersionNotSupported
	ErrorMethodNotAllowed
	ErrorBadContentLength
	ErrorAmbiguousFraming
	ErrorBadTransferCoding
	ErrorHeaderTooLarge
	ErrorURITooLong
	ErrorBodyTooLarge
	ErrorTimeout
	ErrorStreamClosed
	ErrorWriteFailed
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
	case ErrorBadRequestLine:
		return "malformed request line"
	case ErrorBadHeader:
		return "malformed header field"
	case ErrorBadVersion:
		return "malformed http version"
	case ErrorVersionNotSupported:
		return "http version not supported"
	case ErrorMethodNotAllowed:
		return "method not allowed"
	case ErrorBadContentLength:
		return "invalid content-length value"
	case ErrorAmbiguousFraming:
		return "both content-length and transfer-encoding given"
	case ErrorBadTransferCoding:
		return "unsupported transfer coding"
	case ErrorHeaderTooLarge:
		return "header section exceeds the allowed size"
	case ErrorURITooLong:
		return "request line exceeds the allowed size"
	case ErrorBodyTooLarge:
		return "request body exceeds the allowed size"
	case ErrorTimeout:
		return "no request data received within the allowed delay"
	case ErrorStreamClosed:
		return "client closed the stream"
	case ErrorWriteFailed:
		return "cannot write response on the socket"
	}

	return ""
}
