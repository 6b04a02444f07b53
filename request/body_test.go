// body_test.go validates body framing selection and delivery through the
// gateway: declared lengths, chunked bodies, the smuggling rejection, and
// the length bounds.
package request_test

import (
	"io"
	"strings"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/request"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Body framing", func() {
	Context("with a declared Content-Length", func() {
		It("should deliver exactly the declared bytes", func() {
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello", echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(ContainSubstring("hello"))
		})

		It("should accept a zero length", func() {
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n", echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(HavePrefix("HTTP/1.1 200"))
		})

		It("should answer 400 for a negative length", func() {
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: -1\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 400 for a non-numeric length", func() {
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: abc\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 400 for disagreeing duplicates", func() {
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 413 beyond the body budget", func() {
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 1025\r\n\r\n", nil, request.Options{MaxBodySize: 1024})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 413 "))
		})

		It("should accept a length of exactly the budget", func() {
			pay := strings.Repeat("z", 1024)
			rsp, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 1024\r\n\r\n"+pay, echoBodyHandler(), request.Options{MaxBodySize: 1024})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(HavePrefix("HTTP/1.1 200"))
		})

		It("should surface a short body as a read failure", func() {
			var rerr error

			h := gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
				_, rerr = io.ReadAll(r.Body())
				w.WriteStatus(200, "")
				w.ResponseHeader().Set("Content-Length", "0")
				_, _ = w.Write(nil)
			})

			_, req, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 10\r\n\r\nabc", h, request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rerr).To(HaveOccurred())
			Expect(req.CloseConnection()).To(BeTrue())
		})
	})

	Context("with a chunked transfer coding", func() {
		It("should deliver the reassembled payload", func() {
			raw := "POST /x HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
			rsp, _, ok := runCycle(raw, echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(ContainSubstring("hello"))
		})

		It("should accept an empty chunked body", func() {
			raw := "POST /x HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n"
			rsp, _, ok := runCycle(raw, echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(HavePrefix("HTTP/1.1 200"))
		})

		It("should answer 400 for an unknown transfer coding", func() {
			raw := "POST /x HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: gzip\r\n\r\n"
			rsp, _, ok := runCycle(raw, nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})
	})

	Context("with both framings present", func() {
		It("should answer a hard 400", func() {
			raw := "POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
			rsp, req, ok := runCycle(raw, nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
			Expect(req.CloseConnection()).To(BeTrue())
		})
	})
})
