/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package server

import (
	"context"
	"net"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/tlsadapter"
)

// Server is the embeddable HTTP/1.x connection engine.
type Server interface {
	// GetConfig returns the construction configuration.
	GetConfig() Config

	// Prepare resolves and binds the listen address. After Prepare the
	// bound address is discoverable, including an ephemeral port.
	Prepare() liberr.Error

	// Serve runs the connection manager until Stop or Interrupt. It
	// returns the assigned interrupt error, nil on a clean stop.
	Serve() liberr.Error

	// Start is Prepare followed by Serve; readiness is set before the
	// loop is entered.
	Start() liberr.Error

	// Stop ends the loop and waits for the engine to unwind within the
	// shutdown timeout. Idempotent.
	Stop()

	// Interrupt assigns the error Serve re-raises after cleanup and
	// requests the stop.
	Interrupt(err error)

	// IsReady reports whether the listener is bound.
	IsReady() bool

	// IsRunning reports whether the manager loop runs.
	IsRunning() bool

	// Addr returns the bound address, nil before Prepare.
	Addr() net.Addr

	// SetTLS installs the adapter completing accepted sockets into TLS
	// streams. Must be called before Start.
	SetTLS(a tlsadapter.Adapter)

	// RegisterLogger installs the log sink used by every component.
	RegisterLogger(l liblog.FuncLog)

	// Stats returns the process counters.
	Stats() Stats

	// Collector exposes the counters to a prometheus registry.
	Collector() prometheus.Collector

	// WaitNotify blocks until a termination signal or the context ends,
	// then stops the server.
	WaitNotify(ctx context.Context)
}

// New builds a server around a validated configuration and the gateway
// handler.
func New(cfg Config, h gateway.Handler) (Server, liberr.Error) {
	if h == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &srv{
		cfg: cfg.withDefaults(),
		hdl: h,
	}, nil
}
