// pool_test.go covers the worker pool: sizing bounds, sentinel-driven
// shrink, the saturation policy, keep-alive hand-back and stop semantics.
package pool_test

import (
	"sync/atomic"
	"time"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/pool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Worker pool", func() {
	Context("sizing", func() {
		It("should keep the minimum worker set alive after Start", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 3, Max: 8})
			pl.Start()

			Eventually(pl.Size, time.Second, 10*time.Millisecond).Should(Equal(3))

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})

		It("should grow up to the maximum and no further", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 1, Max: 2})
			pl.Start()

			pl.Grow(10)
			Eventually(pl.Size, time.Second, 10*time.Millisecond).Should(Equal(2))

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})

		It("should refuse to shrink below the minimum", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 2, Max: 4})
			pl.Start()

			err := pl.Shrink(1)
			Expect(err).To(HaveOccurred())

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})

		It("should drain workers through sentinels on Shrink", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 1, Max: 4})
			pl.Start()
			pl.Grow(2)

			Eventually(pl.Size, time.Second, 10*time.Millisecond).Should(Equal(3))

			Expect(pl.Shrink(2)).ToNot(HaveOccurred())
			Eventually(pl.Size, time.Second, 10*time.Millisecond).Should(Equal(1))

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})
	})

	Context("servicing", func() {
		It("should run one request cycle per pull", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 2, Max: 4})
			pl.Start()

			c := newStubConn(false)
			Expect(pl.Put(c, time.Second)).ToNot(HaveOccurred())

			Eventually(func() uint64 {
				return c.RequestsSeen()
			}, time.Second, 10*time.Millisecond).Should(Equal(uint64(1)))

			Eventually(c.IsClosed, time.Second, 10*time.Millisecond).Should(BeTrue())

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})

		It("should hand keep-alive connections back instead of closing", func() {
			var handedBack atomic.Int32

			rq := func(c conn.Connection) {
				handedBack.Add(1)
				_ = c.Close()
			}

			pl := pool.New(nil, rq, pool.Config{Min: 1, Max: 2})
			pl.Start()

			Expect(pl.Put(newStubConn(true), time.Second)).ToNot(HaveOccurred())

			Eventually(func() int32 {
				return handedBack.Load()
			}, time.Second, 10*time.Millisecond).Should(Equal(int32(1)))

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})

		It("should auto-grow when every worker is busy", func() {
			rel := make(chan struct{})

			pl := pool.New(nil, nil, pool.Config{Min: 1, Max: 2, QueueSize: 1})
			pl.Start()

			// the single worker blocks, the queue fills, the next put adds
			// a worker instead of failing
			Expect(pl.Put(newBlockingConn(rel), time.Second)).ToNot(HaveOccurred())
			Eventually(pl.Busy, time.Second, 10*time.Millisecond).Should(Equal(1))

			Expect(pl.Put(newStubConn(false), time.Second)).ToNot(HaveOccurred())
			Expect(pl.Put(newStubConn(false), 2*time.Second)).ToNot(HaveOccurred())

			Eventually(pl.Size, time.Second, 10*time.Millisecond).Should(Equal(2))

			rel <- struct{}{}
			Expect(pl.Stop(2 * time.Second)).ToNot(HaveOccurred())
		})
	})

	Context("saturation", func() {
		It("should report a full queue at the maximum size", func() {
			rel := make(chan struct{})

			pl := pool.New(nil, nil, pool.Config{Min: 1, Max: 1, QueueSize: 1})
			pl.Start()

			Expect(pl.Put(newBlockingConn(rel), time.Second)).ToNot(HaveOccurred())
			Eventually(pl.Busy, time.Second, 10*time.Millisecond).Should(Equal(1))

			Expect(pl.Put(newStubConn(false), 100*time.Millisecond)).ToNot(HaveOccurred())

			err := pl.Put(newStubConn(false), 100*time.Millisecond)
			Expect(err).To(HaveOccurred())
			Expect(pool.IsQueueFull(err)).To(BeTrue())

			rel <- struct{}{}
			Expect(pl.Stop(2 * time.Second)).ToNot(HaveOccurred())
		})
	})

	Context("stopping", func() {
		It("should be idempotent", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 2, Max: 4})
			pl.Start()

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())
		})

		It("should refuse new work once stopped", func() {
			pl := pool.New(nil, nil, pool.Config{Min: 1, Max: 1})
			pl.Start()

			Expect(pl.Stop(time.Second)).ToNot(HaveOccurred())

			err := pl.Put(newStubConn(false), 10*time.Millisecond)
			Expect(err).To(HaveOccurred())
		})

		It("should interrupt a stuck worker by closing its socket", func() {
			rel := make(chan struct{})

			pl := pool.New(nil, nil, pool.Config{Min: 1, Max: 1})
			pl.Start()

			c := newBlockingConn(rel)
			Expect(pl.Put(c, time.Second)).ToNot(HaveOccurred())
			Eventually(pl.Busy, time.Second, 10*time.Millisecond).Should(Equal(1))

			Expect(pl.Stop(200 * time.Millisecond)).ToNot(HaveOccurred())
			Expect(c.IsClosed()).To(BeTrue())
			Eventually(pl.Size, time.Second, 10*time.Millisecond).Should(Equal(0))
		})
	})
})
