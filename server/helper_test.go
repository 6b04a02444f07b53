// helper_test.go provides shared fixtures for the server suite: test
// configurations on ephemeral ports, a background starter, raw socket
// clients and response decoding.
package server_test

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/server"

	. "github.com/onsi/gomega"
)

// testConfig returns a fast-ticking configuration on an ephemeral port.
func testConfig() server.Config {
	return server.Config{
		Listen:               "127.0.0.1:0",
		Timeout:              libdur.Duration(2 * time.Second),
		ShutdownTimeout:      libdur.Duration(2 * time.Second),
		ExpirationInterval:   libdur.Duration(50 * time.Millisecond),
		AcceptedQueueTimeout: libdur.Duration(200 * time.Millisecond),
		MinWorkers:           2,
		MaxWorkers:           4,
		KeepAliveConnLimit:   16,
	}
}

// startServer prepares and serves in the background, returning the bound
// address and the channel carrying the Serve result.
func startServer(cfg server.Config, h gateway.Handler) (server.Server, string, chan liberr.Error) {
	srv, err := server.New(cfg, h)
	Expect(err).ToNot(HaveOccurred())

	Expect(srv.Prepare()).ToNot(HaveOccurred())
	Expect(srv.IsReady()).To(BeTrue())

	adr := srv.Addr().String()
	dne := make(chan liberr.Error, 1)

	go func() {
		dne <- srv.Serve()
	}()

	Eventually(srv.IsRunning, 2*time.Second, 10*time.Millisecond).Should(BeTrue())

	return srv, adr, dne
}

// helloHandler answers a fixed text body with an explicit length.
func helloHandler() gateway.Handler {
	return gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
		w.WriteStatus(200, "")
		w.ResponseHeader().Set("Content-Type", "text/plain")
		w.ResponseHeader().Set("Content-Length", strconv.Itoa(len("hello")))
		_, _ = w.Write([]byte("hello"))
	})
}

// sendRequest writes raw bytes and decodes one response off the socket.
func sendRequest(c net.Conn, raw string, method string) *http.Response {
	_, err := c.Write([]byte(raw))
	Expect(err).ToNot(HaveOccurred())

	return readResponse(c, method)
}

func readResponse(c net.Conn, method string) *http.Response {
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))

	rsp, err := http.ReadResponse(bufio.NewReader(c), &http.Request{Method: method})
	Expect(err).ToNot(HaveOccurred())

	return rsp
}

func responseBody(rsp *http.Response) string {
	dat, err := io.ReadAll(rsp.Body)
	Expect(err).ToNot(HaveOccurred())
	_ = rsp.Body.Close()

	return string(dat)
}

func dial(adr string) net.Conn {
	c, err := net.Dial("tcp", adr)
	Expect(err).ToNot(HaveOccurred())
	return c
}

func get(path string) string {
	return "GET " + path + " HTTP/1.1\r\nHost: test\r\n\r\n"
}
