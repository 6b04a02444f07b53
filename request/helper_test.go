// helper_test.go provides shared fixtures for the request machine suite:
// a raw-bytes runner binding the machine to scripted input and capturing
// the wire response, plus simple handlers.
package request_test

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/request"
	"github.com/sabouaram/httpsrv/stream"

	. "github.com/onsi/gomega"
)

// runCycle drives one request cycle over scripted client bytes and returns
// the wire response, the machine, and whether parsing succeeded.
func runCycle(raw string, h gateway.Handler, opt request.Options) (string, request.Request, bool) {
	rd := stream.NewReader(strings.NewReader(raw), 0)

	var out bytes.Buffer
	wr := stream.NewWriter(&out, 0)

	req := request.New(rd, wr, opt)

	ok := req.Parse()

	if ok {
		req.Respond(h)
	}

	return out.String(), req, ok
}

// parseResponse decodes a wire response for structured assertions.
func parseResponse(raw string, method string) *http.Response {
	rsp, err := http.ReadResponse(bufio.NewReader(strings.NewReader(raw)), &http.Request{Method: method})
	Expect(err).ToNot(HaveOccurred())
	return rsp
}

// okHandler answers 200 with a fixed text body and explicit length.
func okHandler(body string) gateway.Handler {
	return gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
		w.WriteStatus(200, "")
		w.ResponseHeader().Set("Content-Type", "text/plain")
		w.ResponseHeader().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	})
}

// echoBodyHandler reads the request body and echoes it without a declared
// length, exercising the chunked write path on HTTP/1.1.
func echoBodyHandler() gateway.Handler {
	return gateway.FuncHandler(func(w gateway.Writer, r gateway.Request) {
		dat, err := io.ReadAll(r.Body())

		if err != nil {
			w.WriteStatus(400, "")
			_, _ = w.Write([]byte("read failed"))
			return
		}

		w.WriteStatus(200, "")
		_, _ = w.Write(dat)
	})
}
