// config_test.go covers the configuration surface: validation constraints
// and the bind address classification.
package server_test

import (
	"github.com/sabouaram/httpsrv/server"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Server configuration", func() {
	Context("validation", func() {
		It("should accept a minimal valid configuration", func() {
			cfg := server.Config{Listen: "127.0.0.1:0"}
			Expect(cfg.Validate()).ToNot(HaveOccurred())
		})

		It("should require a listen address", func() {
			cfg := server.Config{}
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should reject a maximum below the minimum worker count", func() {
			cfg := server.Config{Listen: "127.0.0.1:0", MinWorkers: 4, MaxWorkers: 2}
			Expect(cfg.Validate()).To(HaveOccurred())
		})

		It("should allow an unbounded maximum", func() {
			cfg := server.Config{Listen: "127.0.0.1:0", MinWorkers: 4, MaxWorkers: -1}
			Expect(cfg.Validate()).ToNot(HaveOccurred())
		})

		It("should reject negative sizes", func() {
			cfg := server.Config{Listen: "127.0.0.1:0", MaxRequestBodySize: -1}
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})

	Context("bind address classification", func() {
		It("should classify an absolute path as a local socket", func() {
			cfg := server.Config{Listen: "/run/test.sock"}
			Expect(cfg.IsUnixSocket()).To(BeTrue())
		})

		It("should classify an abstract name as a local socket", func() {
			cfg := server.Config{Listen: "@test"}
			Expect(cfg.IsUnixSocket()).To(BeTrue())
		})

		It("should classify host and port as TCP", func() {
			cfg := server.Config{Listen: "127.0.0.1:8080"}
			Expect(cfg.IsUnixSocket()).To(BeFalse())
		})

		It("should name the server after the bind address by default", func() {
			cfg := server.Config{Listen: "127.0.0.1:8080"}
			Expect(cfg.GetName()).To(Equal("127.0.0.1:8080"))
		})
	})

	Context("construction", func() {
		It("should refuse a nil handler", func() {
			_, err := server.New(server.Config{Listen: "127.0.0.1:0"}, nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
