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
	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time view of the engine counters and gauges.
type Stats struct {
	// Accepted counts accepted sockets, Expired the idle keep-alive
	// connections reaped, Overloads the 503 saturation answers.
	Accepted  uint64
	Expired   uint64
	Overloads uint64

	// Served counts completed request cycles; BytesRead and BytesWritten
	// aggregate the socket counters of serviced connections.
	Served       uint64
	BytesRead    uint64
	BytesWritten uint64

	// Workers, BusyWorkers, QueuedConns and IdleConns are live gauges.
	Workers     int
	BusyWorkers int
	QueuedConns int
	IdleConns   int
}

func (o *srv) Stats() Stats {
	var res Stats

	o.m.RLock()
	pl, mg := o.pl, o.mgr
	o.m.RUnlock()

	if pl != nil {
		s := pl.Stats()
		res.Served = s.Served
		res.BytesRead = s.BytesRead
		res.BytesWritten = s.BytesWritten
		res.Workers = s.Size
		res.BusyWorkers = s.Busy
		res.QueuedConns = s.Queued
	}

	if mg != nil {
		s := mg.Stats()
		res.Accepted = s.Accepted
		res.Expired = s.Expired
		res.Overloads = s.Overloads
		res.IdleConns = s.Idle
	}

	return res
}

func (o *srv) Collector() prometheus.Collector {
	return &collector{
		srv: o,
		dsc: newDescSet(o.cfg.GetName()),
	}
}

type descSet struct {
	accepted  *prometheus.Desc
	expired   *prometheus.Desc
	overloads *prometheus.Desc
	served    *prometheus.Desc
	bytesIn   *prometheus.Desc
	bytesOut  *prometheus.Desc
	workers   *prometheus.Desc
	busy      *prometheus.Desc
	queued    *prometheus.Desc
	idle      *prometheus.Desc
}

func newDescSet(name string) *descSet {
	lbl := prometheus.Labels{"server": name}

	return &descSet{
		accepted:  prometheus.NewDesc("httpsrv_connections_accepted_total", "Accepted sockets.", nil, lbl),
		expired:   prometheus.NewDesc("httpsrv_connections_expired_total", "Idle keep-alive connections reaped.", nil, lbl),
		overloads: prometheus.NewDesc("httpsrv_overloads_total", "Saturation answers with status 503.", nil, lbl),
		served:    prometheus.NewDesc("httpsrv_requests_served_total", "Completed request cycles.", nil, lbl),
		bytesIn:   prometheus.NewDesc("httpsrv_bytes_read_total", "Bytes read from serviced connections.", nil, lbl),
		bytesOut:  prometheus.NewDesc("httpsrv_bytes_written_total", "Bytes written to serviced connections.", nil, lbl),
		workers:   prometheus.NewDesc("httpsrv_workers", "Live workers.", nil, lbl),
		busy:      prometheus.NewDesc("httpsrv_workers_busy", "Workers servicing a request.", nil, lbl),
		queued:    prometheus.NewDesc("httpsrv_ready_queue_depth", "Connections waiting for a worker.", nil, lbl),
		idle:      prometheus.NewDesc("httpsrv_keepalive_idle", "Idle keep-alive connections tracked.", nil, lbl),
	}
}

type collector struct {
	srv *srv
	dsc *descSet
}

func (o *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- o.dsc.accepted
	ch <- o.dsc.expired
	ch <- o.dsc.overloads
	ch <- o.dsc.served
	ch <- o.dsc.bytesIn
	ch <- o.dsc.bytesOut
	ch <- o.dsc.workers
	ch <- o.dsc.busy
	ch <- o.dsc.queued
	ch <- o.dsc.idle
}

func (o *collector) Collect(ch chan<- prometheus.Metric) {
	s := o.srv.Stats()

	ch <- prometheus.MustNewConstMetric(o.dsc.accepted, prometheus.CounterValue, float64(s.Accepted))
	ch <- prometheus.MustNewConstMetric(o.dsc.expired, prometheus.CounterValue, float64(s.Expired))
	ch <- prometheus.MustNewConstMetric(o.dsc.overloads, prometheus.CounterValue, float64(s.Overloads))
	ch <- prometheus.MustNewConstMetric(o.dsc.served, prometheus.CounterValue, float64(s.Served))
	ch <- prometheus.MustNewConstMetric(o.dsc.bytesIn, prometheus.CounterValue, float64(s.BytesRead))
	ch <- prometheus.MustNewConstMetric(o.dsc.bytesOut, prometheus.CounterValue, float64(s.BytesWritten))
	ch <- prometheus.MustNewConstMetric(o.dsc.workers, prometheus.GaugeValue, float64(s.Workers))
	ch <- prometheus.MustNewConstMetric(o.dsc.busy, prometheus.GaugeValue, float64(s.BusyWorkers))
	ch <- prometheus.MustNewConstMetric(o.dsc.queued, prometheus.GaugeValue, float64(s.QueuedConns))
	ch <- prometheus.MustNewConstMetric(o.dsc.idle, prometheus.GaugeValue, float64(s.IdleConns))
}
