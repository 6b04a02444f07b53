// writer_test.go covers the counting buffered writer: flush behavior,
// complete delivery through SendAll, and the byte counter.
package stream_test

import (
	"bytes"

	"github.com/sabouaram/httpsrv/stream"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Writer", func() {
	Context("buffering", func() {
		It("should hold small writes until Flush", func() {
			var sink bytes.Buffer

			wr := stream.NewWriter(&sink, 0)

			_, err := wr.Write([]byte("hello"))
			Expect(err).ToNot(HaveOccurred())
			Expect(sink.Len()).To(Equal(0))

			Expect(wr.Flush()).ToNot(HaveOccurred())
			Expect(sink.String()).To(Equal("hello"))
		})

		It("should flush once a block accumulated", func() {
			var sink bytes.Buffer

			wr := stream.NewWriter(&sink, 0)

			big := bytes.Repeat([]byte{'x'}, stream.BlockSize)
			_, err := wr.Write(big)
			Expect(err).ToNot(HaveOccurred())
			Expect(sink.Len()).To(BeNumerically(">=", stream.BlockSize))
		})
	})

	Context("SendAll", func() {
		It("should deliver the whole buffer", func() {
			var sink bytes.Buffer

			wr := stream.NewWriter(&sink, 0)

			pay := bytes.Repeat([]byte{'y'}, 3*stream.BlockSize+17)
			Expect(wr.SendAll(pay)).ToNot(HaveOccurred())
			Expect(wr.Flush()).ToNot(HaveOccurred())
			Expect(sink.Len()).To(Equal(len(pay)))
		})
	})

	Context("counters", func() {
		It("should count accepted bytes monotonically", func() {
			var sink bytes.Buffer

			wr := stream.NewWriter(&sink, 0)

			_, _ = wr.Write([]byte("abc"))
			Expect(wr.BytesWritten()).To(Equal(uint64(3)))

			_, _ = wr.Write([]byte("de"))
			Expect(wr.BytesWritten()).To(Equal(uint64(5)))
		})
	})
})
