// response_test.go validates response assembly: default headers, chunked
// framing and its terminator, keep-alive disposition per protocol version,
// HEAD suppression, the fixed error responses and the 100-continue interim.
package request_test

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/request"
	"github.com/sabouaram/httpsrv/stream"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Response writing", func() {
	Context("with an explicit Content-Length", func() {
		It("should write status, defaults and body once", func() {
			raw, _, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("hello"), request.Options{ServerName: "unit"})
			Expect(ok).To(BeTrue())

			rsp := parseResponse(raw, "GET")
			Expect(rsp.StatusCode).To(Equal(200))
			Expect(rsp.Header.Get("Server")).To(Equal("unit"))
			Expect(rsp.Header.Get("Date")).ToNot(BeEmpty())
			Expect(rsp.Header.Get("Content-Length")).To(Equal("5"))

			bdy, _ := io.ReadAll(rsp.Body)
			Expect(string(bdy)).To(Equal("hello"))
		})

		It("should keep the connection open on HTTP/1.1", func() {
			raw, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("hello"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.CloseConnection()).To(BeFalse())
			Expect(raw).ToNot(ContainSubstring("Connection: close"))
		})

		It("should advertise the keep-alive delay on HTTP/1.1", func() {
			opt := request.Options{Timeout: 7 * time.Second}
			raw, _, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("hello"), opt)

			Expect(ok).To(BeTrue())
			Expect(raw).To(ContainSubstring("Keep-Alive: timeout=7"))
		})

		It("should close an HTTP/1.0 request without Keep-Alive", func() {
			raw, req, ok := runCycle("GET / HTTP/1.0\r\n\r\n", okHandler("hello"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.CloseConnection()).To(BeTrue())
			Expect(raw).To(ContainSubstring("Connection: close"))
		})

		It("should retain an HTTP/1.0 request asking for Keep-Alive", func() {
			raw, req, ok := runCycle("GET / HTTP/1.0\r\nConnection: Keep-Alive\r\n\r\n", okHandler("hello"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.CloseConnection()).To(BeFalse())
			Expect(raw).To(ContainSubstring("Connection: Keep-Alive"))
		})

		It("should honor Connection: close from the client", func() {
			_, req, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n", okHandler("hello"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(req.CloseConnection()).To(BeTrue())
		})
	})

	Context("without a declared length on HTTP/1.1", func() {
		It("should frame the body chunked with a terminator", func() {
			raw, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello", echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(raw).To(ContainSubstring("Transfer-Encoding: chunked"))
			Expect(raw).To(ContainSubstring("5\r\nhello\r\n"))
			Expect(raw).To(HaveSuffix("0\r\n\r\n"))
		})

		It("should round-trip the body through a conforming decoder", func() {
			raw, _, ok := runCycle("POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 3\r\n\r\nabc", echoBodyHandler(), request.Options{})
			Expect(ok).To(BeTrue())

			rsp := parseResponse(raw, "POST")
			bdy, err := io.ReadAll(rsp.Body)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(bdy)).To(Equal("abc"))
		})

		It("should close instead of chunking for HTTP/1.0", func() {
			raw, req, ok := runCycle("POST /x HTTP/1.0\r\nConnection: Keep-Alive\r\nContent-Length: 3\r\n\r\nabc", echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(raw).ToNot(ContainSubstring("Transfer-Encoding"))
			Expect(req.CloseConnection()).To(BeTrue())
		})
	})

	Context("with a handler writing nothing", func() {
		It("should not chunk a 204 response", func() {
			h := gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
				w.WriteStatus(204, "")
			})

			raw, _, ok := runCycle("GET / HTTP/1.1\r\nHost: x\r\n\r\n", h, request.Options{})

			Expect(ok).To(BeTrue())
			Expect(raw).To(HavePrefix("HTTP/1.1 204"))
			Expect(raw).ToNot(ContainSubstring("Transfer-Encoding"))
		})
	})

	Context("with a HEAD request", func() {
		It("should keep the framing headers and drop the body", func() {
			raw, _, ok := runCycle("HEAD / HTTP/1.1\r\nHost: x\r\n\r\n", okHandler("hello"), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(raw).To(ContainSubstring("Content-Length: 5"))
			Expect(raw).ToNot(HaveSuffix("hello"))
		})
	})

	Context("with the fixed error responses", func() {
		It("should emit the classic reason phrases", func() {
			raw, _, ok := runCycle("GET /"+strings.Repeat("a", 2048)+" HTTP/1.1\r\n\r\n", nil, request.Options{MaxHeaderSize: 512})

			Expect(ok).To(BeFalse())
			Expect(raw).To(ContainSubstring("414 Request-URI Too Long"))
			Expect(raw).To(ContainSubstring("text/html"))
		})
	})

	Context("with a 100-continue expectation", func() {
		It("should emit the interim response before body bytes flow", func() {
			raw := "POST /x HTTP/1.1\r\nHost: x\r\nExpect: 100-continue\r\nContent-Length: 5\r\n\r\nhello"
			out, _, ok := runCycle(raw, echoBodyHandler(), request.Options{})

			Expect(ok).To(BeTrue())
			Expect(out).To(HavePrefix("HTTP/1.1 100 Continue\r\n\r\n"))
			Expect(out).To(ContainSubstring("HTTP/1.1 200"))
		})

		It("should not emit the interim when the body is never read", func() {
			h := gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
				w.WriteStatus(200, "")
				w.ResponseHeader().Set("Content-Length", "0")
				_, _ = w.Write(nil)
			})

			raw := "POST /x HTTP/1.1\r\nHost: x\r\nExpect: 100-continue\r\nContent-Length: 5\r\n\r\nhello"
			out, _, ok := runCycle(raw, h, request.Options{})

			Expect(ok).To(BeTrue())
			Expect(out).ToNot(ContainSubstring("100 Continue"))
		})
	})

	Context("with an unrecoverable gateway failure", func() {
		It("should answer 500 when headers are still pending", func() {
			rd := stream.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost: x\r\n\r\n"), 0)

			var buf bytes.Buffer
			wr := stream.NewWriter(&buf, 0)

			req := request.New(rd, wr, request.Options{})
			Expect(req.Parse()).To(BeTrue())

			req.InternalError()

			Expect(buf.String()).To(ContainSubstring(" 500 "))
			Expect(buf.String()).To(ContainSubstring("Connection: close"))
			Expect(req.CloseConnection()).To(BeTrue())
		})

		It("should only force the close once headers are gone", func() {
			var out bytes.Buffer

			rd := stream.NewReader(strings.NewReader("GET / HTTP/1.1\r\nHost: x\r\n\r\n"), 0)
			wr := stream.NewWriter(&out, 0)

			req := request.New(rd, wr, request.Options{})
			Expect(req.Parse()).To(BeTrue())

			req.WriteStatus(200, "")
			req.ResponseHeader().Set("Content-Length", "2")
			_, _ = req.Write([]byte("ok"))

			req.InternalError()

			Expect(req.CloseConnection()).To(BeTrue())
			Expect(out.String()).ToNot(ContainSubstring(" 500 "))
		})
	})
})
