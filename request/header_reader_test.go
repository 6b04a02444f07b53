// header_reader_test.go validates header section reading: folding,
// duplicates, syntax rejection and the underscore-dropping reader variant.
package request_test

import (
	"strings"

	"github.com/sabouaram/httpsrv/request"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Header reading", func() {
	Context("with the default reader", func() {
		It("should expose fields to the gateway", func() {
			_, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\nX-Token: abc\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Header().Get("X-Token")).To(Equal("abc"))
			Expect(req.Authority()).To(Equal("x"))
		})

		It("should fold obsolete line continuations with one space", func() {
			_, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\nX-Long: first\r\n \tsecond\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Header().Get("X-Long")).To(Equal("first second"))
		})

		It("should keep duplicate fields joined on read", func() {
			_, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\nAccept: a\r\nAccept: b\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Header().Get("Accept")).To(Equal("a, b"))
		})

		It("should keep a header containing an underscore", func() {
			_, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\nX_Legacy: v\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Header().Has("X_Legacy")).To(BeTrue())
		})

		It("should answer 400 for whitespace before the colon", func() {
			rsp, _, ok := runCycle("GET / HTTP/1.1\r\nBad Header : v\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 400 for a continuation without a field", func() {
			rsp, _, ok := runCycle("GET / HTTP/1.1\r\n folded: v\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 413 for an oversized header section", func() {
			raw := "GET / HTTP/1.1\r\nX-Fill: " + strings.Repeat("v", 4096) + "\r\n\r\n"
			rsp, _, ok := runCycle(raw, nil, request.Options{MaxHeaderSize: 1024})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 413 "))
		})
	})

	Context("with the underscore-dropping reader", func() {
		It("should silently discard underscore names only", func() {
			opt := request.Options{Headers: request.NewDropUnderscoreHeaderReader()}
			_, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\nX_Legacy: v\r\nX-Kept: w\r\n\r\n", okHandler("ok"), opt)

			Expect(ok).To(BeTrue())
			Expect(req.Header().Has("X_Legacy")).To(BeFalse())
			Expect(req.Header().Get("X-Kept")).To(Equal("w"))
		})
	})
})
