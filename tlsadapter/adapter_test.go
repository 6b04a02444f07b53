// adapter_test.go covers the builtin adapter: construction, the handshake
// wrap with its certificate environment, the plain-HTTP detection, and the
// benign failure classification.
package tlsadapter_test

import (
	"crypto/tls"
	"net"
	"time"

	libtls "github.com/nabbar/golib/certificates"

	"github.com/sabouaram/httpsrv/tlsadapter"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newAdapter() tlsadapter.Adapter {
	adp, err := tlsadapter.New(libtls.Config{}, tlsadapter.Options{
		Certificate: crtFile,
		PrivateKey:  keyFile,
	})

	Expect(err).ToNot(HaveOccurred())
	Expect(adp).ToNot(BeNil())

	return adp
}

var _ = Describe("Builtin TLS adapter", func() {
	Context("construction", func() {
		It("should fail without certificate material", func() {
			_, err := tlsadapter.New(libtls.Config{}, tlsadapter.Options{})
			Expect(err).To(HaveOccurred())
		})

		It("should fail on an unreadable certificate", func() {
			_, err := tlsadapter.New(libtls.Config{}, tlsadapter.Options{
				Certificate: "/nonexistent.crt",
				PrivateKey:  keyFile,
			})
			Expect(err).To(HaveOccurred())
		})

		It("should leave the listener untouched on Prepare", func() {
			adp := newAdapter()

			lst, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).ToNot(HaveOccurred())
			defer func() { _ = lst.Close() }()

			out, aerr := adp.Prepare(lst)
			Expect(aerr).ToNot(HaveOccurred())
			Expect(out).To(BeIdenticalTo(lst))
		})
	})

	Context("wrapping an accepted socket", func() {
		It("should complete a handshake and expose the certificate environment", func() {
			adp := newAdapter()
			srv, cli := net.Pipe()

			defer func() { _ = cli.Close() }()

			go func() {
				t := tls.Client(cli, &tls.Config{InsecureSkipVerify: true})
				_ = t.Handshake()

				// keep the session alive until the server side read its env
				buf := make([]byte, 1)
				_, _ = t.Read(buf)
			}()

			wrp, env, err := adp.Wrap(srv, 2*time.Second)
			Expect(err).ToNot(HaveOccurred())
			Expect(wrp).ToNot(BeNil())

			Expect(env).To(HaveKeyWithValue("HTTPS", "on"))
			Expect(env).To(HaveKey("SSL_PROTOCOL"))
			Expect(env).To(HaveKey("SSL_CIPHER"))
			Expect(env).To(HaveKeyWithValue("SSL_CLIENT_VERIFY", "NONE"))
			Expect(env).To(HaveKeyWithValue("SSL_SERVER_S_DN_CN", "localhost"))
			Expect(env).To(HaveKeyWithValue("SSL_SERVER_S_DN_C", "FR"))
			Expect(env["SSL_SERVER_S_DN"]).To(ContainSubstring("CN=localhost"))

			_ = wrp.Close()
		})

		It("should report a plain HTTP client distinctly", func() {
			adp := newAdapter()
			srv, cli := net.Pipe()

			defer func() { _ = cli.Close() }()

			go func() {
				_, _ = cli.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
			}()

			wrp, env, err := adp.Wrap(srv, 2*time.Second)
			Expect(err).ToNot(HaveOccurred())
			Expect(wrp).To(BeNil())
			Expect(env).To(BeNil())
		})

		It("should classify a peer hanging up as benign", func() {
			adp := newAdapter()
			srv, cli := net.Pipe()

			go func() {
				_ = cli.Close()
			}()

			wrp, _, err := adp.Wrap(srv, 2*time.Second)
			Expect(wrp).To(BeNil())
			Expect(err).To(HaveOccurred())
			Expect(tlsadapter.IsBenign(err)).To(BeTrue())
		})
	})

	Context("rebuilding the environment", func() {
		It("should yield an empty map for an unwrapped connection", func() {
			adp := newAdapter()
			srv, cli := net.Pipe()

			defer func() { _ = srv.Close() }()
			defer func() { _ = cli.Close() }()

			Expect(adp.Environ(srv)).To(BeEmpty())
		})
	})
})
