// line_test.go validates request line parsing: target forms, version
// handling, and the statuses answered for each malformation.
package request_test

import (
	"strings"

	"github.com/sabouaram/httpsrv/request"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Request line parsing", func() {
	Context("with valid lines", func() {
		It("should accept an origin-form target with a query", func() {
			_, req, ok := runCycle("GET /a/b?x=1&y=2 HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Method()).To(Equal("GET"))
			Expect(req.Path()).To(Equal("/a/b"))
			Expect(req.Query()).To(Equal("x=1&y=2"))

			maj, min := req.Proto()
			Expect(maj).To(Equal(1))
			Expect(min).To(Equal(1))
		})

		It("should accept an asterisk-form target for OPTIONS", func() {
			_, req, ok := runCycle("OPTIONS * HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.RequestURI()).To(Equal("*"))
		})

		It("should accept an absolute-form target and keep the authority", func() {
			_, req, ok := runCycle("GET http://upstream.example:8080/x/y?q=1 HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Path()).To(Equal("/x/y"))
			Expect(req.Query()).To(Equal("q=1"))
			Expect(req.Authority()).To(Equal("upstream.example:8080"))
			Expect(req.Environ()).To(HaveKeyWithValue("REQUEST_AUTHORITY", "upstream.example:8080"))
		})

		It("should serve the root for an authority-only absolute form", func() {
			_, req, ok := runCycle("GET http://upstream.example HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.Path()).To(Equal("/"))
		})

		It("should tolerate one leading empty line", func() {
			rsp, _, ok := runCycle("\r\nGET / HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(HavePrefix("HTTP/1.1 200"))
		})

		It("should answer an HTTP/1.0 request with a 1.0 status line", func() {
			rsp, _, ok := runCycle("GET / HTTP/1.0\r\n\r\n", okHandler("ok"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(rsp).To(HavePrefix("HTTP/1.0 200"))
		})
	})

	Context("with malformed lines", func() {
		It("should answer 400 for leading whitespace", func() {
			rsp, req, ok := runCycle(" GET / HTTP/1.1\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
			Expect(req.CloseConnection()).To(BeTrue())
		})

		It("should answer 400 for a missing version", func() {
			rsp, _, ok := runCycle("GET /\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 400 for a major-only version", func() {
			rsp, _, ok := runCycle("GET / HTTP/1\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 505 for an unsupported major version", func() {
			rsp, _, ok := runCycle("GET / HTTP/2.0\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 505 "))
		})

		It("should answer 400 for an asterisk target outside OPTIONS", func() {
			rsp, _, ok := runCycle("GET * HTTP/1.1\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})

		It("should answer 405 for CONNECT outside proxy mode", func() {
			rsp, _, ok := runCycle("CONNECT upstream.example:443 HTTP/1.1\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 405 "))
		})

		It("should accept CONNECT in proxy mode", func() {
			_, req, ok := runCycle("CONNECT upstream.example:443 HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("ok"), request.Options{Proxy: true})

			Expect(ok).To(BeTrue())
			Expect(req.Authority()).To(Equal("upstream.example:443"))
		})

		It("should answer 400 for a bare authority target", func() {
			rsp, _, ok := runCycle("GET upstream.example HTTP/1.1\r\n\r\n", nil, request.Options{})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 400 "))
		})
	})

	Context("with an oversized request line", func() {
		It("should answer 414 beyond the header budget", func() {
			lin := "GET /" + strings.Repeat("a", 2048) + " HTTP/1.1\r\n\r\n"
			rsp, req, ok := runCycle(lin, nil, request.Options{MaxHeaderSize: 1024})

			Expect(ok).To(BeFalse())
			Expect(rsp).To(ContainSubstring(" 414 "))
			Expect(rsp).To(ContainSubstring("Connection: close"))
			Expect(req.CloseConnection()).To(BeTrue())
		})
	})
})
