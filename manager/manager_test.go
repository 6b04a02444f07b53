// manager_test.go covers manager construction and the lifecycle edges
// that do not need wire traffic: parameter validation, stopping before
// serving, and the serving flag.
package manager_test

import (
	"net"
	"time"

	"github.com/sabouaram/httpsrv/manager"
	"github.com/sabouaram/httpsrv/pool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Connection manager", func() {
	var (
		lst net.Listener
		pl  pool.Pool
	)

	BeforeEach(func() {
		var err error

		lst, err = net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())

		pl = pool.New(nil, nil, pool.Config{Min: 1, Max: 2})
	})

	AfterEach(func() {
		if lst != nil {
			_ = lst.Close()
		}
		_ = pl.Stop(time.Second)
	})

	Context("construction", func() {
		It("should require at least one listener", func() {
			_, err := manager.New(nil, pl, manager.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("should require a pool", func() {
			_, err := manager.New([]net.Listener{lst}, nil, manager.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("should build over a TCP listener", func() {
			mgr, err := manager.New([]net.Listener{lst}, pl, manager.Config{})

			Expect(err).ToNot(HaveOccurred())
			Expect(mgr).ToNot(BeNil())
			Expect(mgr.IsServing()).To(BeFalse())
			Expect(mgr.Idle()).To(Equal(0))
		})
	})

	Context("lifecycle edges", func() {
		It("should not hang when stopped before serving", func() {
			mgr, err := manager.New([]net.Listener{lst}, pl, manager.Config{})
			Expect(err).ToNot(HaveOccurred())

			dne := make(chan struct{})

			go func() {
				mgr.Stop()
				close(dne)
			}()

			Eventually(dne, time.Second).Should(BeClosed())
		})

		It("should end Serve shortly after Stop", func() {
			mgr, err := manager.New([]net.Listener{lst}, pl, manager.Config{
				ExpirationInterval: 20 * time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			dne := make(chan struct{})

			go func() {
				_ = mgr.Serve()
				close(dne)
			}()

			Eventually(mgr.IsServing, time.Second, 10*time.Millisecond).Should(BeTrue())

			mgr.Stop()
			Eventually(dne, 2*time.Second).Should(BeClosed())
			Expect(mgr.IsServing()).To(BeFalse())
		})
	})
})
