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
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	"github.com/sabouaram/httpsrv/conn"
	"github.com/sabouaram/httpsrv/gateway"
	"github.com/sabouaram/httpsrv/manager"
	"github.com/sabouaram/httpsrv/pool"
	"github.com/sabouaram/httpsrv/request"
	"github.com/sabouaram/httpsrv/tlsadapter"
)

type srv struct {
	m   sync.RWMutex
	cfg Config
	hdl gateway.Handler
	tls tlsadapter.Adapter
	log liblog.FuncLog

	lst net.Listener
	mgr manager.Manager
	pl  pool.Pool

	rdy atomic.Bool
	run atomic.Bool
}

func (o *srv) logger() liblog.Logger {
	o.m.RLock()
	defer o.m.RUnlock()

	if o.log == nil {
		return liblog.GetDefault()
	} else if l := o.log(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *srv) GetConfig() Config {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.cfg
}

func (o *srv) SetTLS(a tlsadapter.Adapter) {
	o.m.Lock()
	defer o.m.Unlock()
	o.tls = a
}

func (o *srv) RegisterLogger(l liblog.FuncLog) {
	o.m.Lock()
	defer o.m.Unlock()
	o.log = l
}

func (o *srv) IsReady() bool {
	return o.rdy.Load()
}

func (o *srv) IsRunning() bool {
	return o.run.Load()
}

func (o *srv) Addr() net.Addr {
	o.m.RLock()
	defer o.m.RUnlock()

	if o.lst == nil {
		return nil
	}

	return o.lst.Addr()
}

func (o *srv) Prepare() liberr.Error {
	o.m.Lock()
	defer o.m.Unlock()

	if o.run.Load() {
		return ErrorAlreadyRunning.Error(nil)
	}

	if o.lst != nil {
		return nil
	}

	lst, err := o.buildListener()

	if err != nil {
		return err
	}

	if o.tls != nil {
		nls, terr := o.tls.Prepare(lst)

		if terr != nil {
			_ = lst.Close()
			return terr
		}

		lst = nls
	}

	o.lst = lst
	o.rdy.Store(true)

	o.logger().Entry(loglvl.InfoLevel, "server listening on %s", lst.Addr().String()).Log()

	return nil
}

func (o *srv) Serve() liberr.Error {
	o.m.Lock()

	if o.lst == nil {
		o.m.Unlock()
		return ErrorNotPrepared.Error(nil)
	}

	if o.run.Load() {
		o.m.Unlock()
		return ErrorAlreadyRunning.Error(nil)
	}

	o.pl = pool.New(o.hdl, func(c conn.Connection) {
		if m := o.getManager(); m != nil {
			m.Requeue(c)
		} else {
			_ = c.Close()
		}
	}, pool.Config{
		Min:       o.cfg.MinWorkers,
		Max:       o.cfg.MaxWorkers,
		QueueSize: o.cfg.AcceptedQueueSize,
		Logger:    o.log,
	})

	mgrInst, err := manager.New([]net.Listener{o.lst}, o.pl, manager.Config{
		ExpirationInterval:   o.cfg.ExpirationInterval.Time(),
		Timeout:              o.cfg.Timeout.Time(),
		ShutdownTimeout:      o.cfg.ShutdownTimeout.Time(),
		AcceptedQueueTimeout: o.cfg.AcceptedQueueTimeout.Time(),
		KeepAliveConnLimit:   o.cfg.KeepAliveConnLimit,
		NoDelay:              o.cfg.NoDelay,
		Conn:                 o.connOptions(),
		Logger:               o.log,
	})

	if err != nil {
		o.m.Unlock()
		return err
	}

	o.mgr = mgrInst
	o.run.Store(true)
	o.m.Unlock()

	serr := mgrInst.Serve()

	o.m.Lock()
	o.run.Store(false)
	o.rdy.Store(false)
	o.lst = nil
	o.mgr = nil
	o.m.Unlock()

	if serr != nil {
		o.logger().Entry(loglvl.ErrorLevel, "server stopped on interrupt").ErrorAdd(true, serr).Check(loglvl.NilLevel)
	} else {
		o.logger().Entry(loglvl.InfoLevel, "server stopped").Log()
	}

	return serr
}

func (o *srv) Start() liberr.Error {
	if err := o.Prepare(); err != nil {
		return err
	}

	return o.Serve()
}

func (o *srv) getManager() manager.Manager {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.mgr
}

func (o *srv) Stop() {
	if m := o.getManager(); m != nil {
		m.Stop()
		return
	}

	// not serving yet: release the bound listener so Stop after a lone
	// Prepare does not leak it
	o.m.Lock()
	defer o.m.Unlock()

	if o.lst != nil {
		_ = o.lst.Close()
		o.lst = nil
	}

	o.rdy.Store(false)
}

func (o *srv) Interrupt(err error) {
	if m := o.getManager(); m != nil {
		m.Interrupt(err)
	}
}

func (o *srv) WaitNotify(ctx context.Context) {
	if !o.IsRunning() {
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT)
	signal.Notify(quit, syscall.SIGTERM)
	signal.Notify(quit, syscall.SIGQUIT)

	defer signal.Stop(quit)

	tck := time.NewTicker(100 * time.Millisecond)
	defer tck.Stop()

	for {
		select {
		case <-quit:
			o.Stop()
			return
		case <-ctx.Done():
			if o.IsRunning() {
				o.Stop()
			}
			return
		case <-tck.C:
			if !o.IsRunning() {
				return
			}
		}
	}
}

func (o *srv) connOptions() conn.Options {
	var hdr request.HeaderReader

	if o.cfg.DropUnderscoreHeaders {
		hdr = request.NewDropUnderscoreHeaderReader()
	} else {
		hdr = request.NewHeaderReader()
	}

	return conn.Options{
		RBufSize:       o.cfg.ReadBufferSize,
		WBufSize:       o.cfg.WriteBufferSize,
		Timeout:        o.cfg.Timeout.Time(),
		ServerName:     o.cfg.ServerName,
		MaxHeaderSize:  o.cfg.MaxRequestHeaderSize,
		MaxBodySize:    o.cfg.MaxRequestBodySize,
		Headers:        hdr,
		Proxy:          o.cfg.ProxyMode,
		PeerCreds:      o.cfg.PeerCredsEnabled,
		PeerCredsNames: o.cfg.PeerCredsResolveEnabled,
		TLS:            o.tls,
		Logger:         o.log,
	}
}
