// chunked_test.go covers the chunked transfer coding reader: reassembly,
// chunk extensions, the empty body, trailer consumption, malformed framing
// and the cumulative payload bound.
package stream_test

import (
	"io"
	"strings"

	"github.com/sabouaram/httpsrv/stream"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func chunkedBody(raw string) stream.Body {
	return stream.NewChunkedReader(stream.NewReader(strings.NewReader(raw), 0), 0)
}

var _ = Describe("Chunked body reader", func() {
	Context("reassembling payloads", func() {
		It("should deliver the chunks as one stream", func() {
			bdy := chunkedBody("5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")

			dat, err := io.ReadAll(bdy)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(dat)).To(Equal("hello world"))
		})

		It("should discard chunk extensions", func() {
			bdy := chunkedBody("5;ext=1\r\nhello\r\n0\r\n\r\n")

			dat, err := io.ReadAll(bdy)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(dat)).To(Equal("hello"))
		})

		It("should accept uppercase hex sizes", func() {
			bdy := chunkedBody("A\r\n0123456789\r\n0\r\n\r\n")

			dat, err := io.ReadAll(bdy)
			Expect(err).ToNot(HaveOccurred())
			Expect(dat).To(HaveLen(10))
		})

		It("should deliver zero bytes for an empty body", func() {
			bdy := chunkedBody("0\r\n\r\n")

			dat, err := io.ReadAll(bdy)
			Expect(err).ToNot(HaveOccurred())
			Expect(dat).To(BeEmpty())
		})

		It("should consume trailer fields after the last chunk", func() {
			bdy := chunkedBody("3\r\nabc\r\n0\r\nExpires: never\r\nX-Sum: 1\r\n\r\n")

			dat, err := io.ReadAll(bdy)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(dat)).To(Equal("abc"))
		})

		It("should report an unknown remainder", func() {
			Expect(chunkedBody("0\r\n\r\n").Remaining()).To(Equal(int64(-1)))
		})
	})

	Context("with malformed framing", func() {
		It("should reject a non-hex size line", func() {
			_, err := io.ReadAll(chunkedBody("zz\r\nhello\r\n0\r\n\r\n"))

			Expect(err).To(HaveOccurred())
			Expect(stream.IsMalformedChunk(err)).To(BeTrue())
		})

		It("should reject a missing CRLF after a chunk", func() {
			_, err := io.ReadAll(chunkedBody("5\r\nhelloXX0\r\n\r\n"))

			Expect(err).To(HaveOccurred())
			Expect(stream.IsMalformedChunk(err)).To(BeTrue())
		})

		It("should fail on a stream ending inside a chunk", func() {
			_, err := io.ReadAll(chunkedBody("5\r\nhe"))

			Expect(err).To(HaveOccurred())
			Expect(stream.IsClientDisconnect(err)).To(BeTrue())
		})
	})

	Context("with a payload bound", func() {
		It("should fail beyond the allowed body size", func() {
			bdy := stream.NewChunkedReader(stream.NewReader(strings.NewReader("10\r\n0123456789abcdef\r\n0\r\n\r\n"), 0), 8)

			_, err := io.ReadAll(bdy)
			Expect(err).To(HaveOccurred())
			Expect(stream.IsEntityTooLarge(err)).To(BeTrue())
		})

		It("should accept a payload at exactly the bound", func() {
			bdy := stream.NewChunkedReader(stream.NewReader(strings.NewReader("8\r\n01234567\r\n0\r\n\r\n"), 0), 8)

			dat, err := io.ReadAll(bdy)
			Expect(err).ToNot(HaveOccurred())
			Expect(dat).To(HaveLen(8))
		})
	})
})
