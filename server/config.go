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
	"fmt"
	"strings"
	"time"

	libval "github.com/go-playground/validator/v10"
	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	libptc "github.com/nabbar/golib/network/protocol"
)

const (
	// DefaultTimeout is the per-request inactivity limit and the idle
	// keep-alive expiry.
	DefaultTimeout = libdur.Duration(10 * time.Second)

	// DefaultShutdownTimeout bounds the worker join on Stop.
	DefaultShutdownTimeout = libdur.Duration(5 * time.Second)

	// DefaultExpirationInterval is the manager tick.
	DefaultExpirationInterval = libdur.Duration(500 * time.Millisecond)

	// DefaultAcceptedQueueTimeout bounds the manager to pool hand-off.
	DefaultAcceptedQueueTimeout = libdur.Duration(10 * time.Second)

	// DefaultMaxHeaderSize bounds the request line plus headers.
	DefaultMaxHeaderSize = 500 * 1024

	// DefaultMaxBodySize bounds the request body.
	DefaultMaxBodySize = 100 * 1024 * 1024

	// DefaultServerName is the Server response header value.
	DefaultServerName = "httpsrv"
)

// Config is the server construction surface. The struct is ready for
// mapstructure, json or yaml decoding; file handling itself belongs to the
// embedding application.
type Config struct {
	// Name identifies the server in logs and metrics, defaulting to the
	// bind address.
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// Listen is the bind address: "host:port" for TCP (IPv6 bracketed,
	// port 0 for an ephemeral port), an absolute path for a local socket,
	// or "@name" for the abstract namespace.
	Listen string `mapstructure:"listen" json:"listen" yaml:"listen" validate:"required"`

	// Protocol forces the network family; empty selects it from Listen.
	Protocol libptc.NetworkProtocol `mapstructure:"protocol" json:"protocol" yaml:"protocol"`

	// UnixFileMode is applied to a local socket path after bind.
	UnixFileMode uint32 `mapstructure:"unixFileMode" json:"unixFileMode" yaml:"unixFileMode"`

	// ServerName is the default Server response header value.
	ServerName string `mapstructure:"serverName" json:"serverName" yaml:"serverName"`

	// Timeout is the per-request inactivity limit, also advertised in the
	// Keep-Alive response header and applied to idle expiry.
	Timeout libdur.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// ShutdownTimeout bounds the worker join during Stop.
	ShutdownTimeout libdur.Duration `mapstructure:"shutdownTimeout" json:"shutdownTimeout" yaml:"shutdownTimeout"`

	// ExpirationInterval is the manager tick and idle sweep period.
	ExpirationInterval libdur.Duration `mapstructure:"expirationInterval" json:"expirationInterval" yaml:"expirationInterval"`

	// MinWorkers and MaxWorkers bound the pool; MaxWorkers below zero
	// means unbounded.
	MinWorkers int `mapstructure:"minWorkers" json:"minWorkers" yaml:"minWorkers" validate:"gte=0"`
	MaxWorkers int `mapstructure:"maxWorkers" json:"maxWorkers" yaml:"maxWorkers"`

	// RequestQueueSize is the listen backlog requested from the kernel.
	RequestQueueSize int `mapstructure:"requestQueueSize" json:"requestQueueSize" yaml:"requestQueueSize" validate:"gte=0"`

	// AcceptedQueueSize is the ready queue capacity between manager and
	// workers; AcceptedQueueTimeout bounds the hand-off.
	AcceptedQueueSize    int             `mapstructure:"acceptedQueueSize" json:"acceptedQueueSize" yaml:"acceptedQueueSize" validate:"gte=0"`
	AcceptedQueueTimeout libdur.Duration `mapstructure:"acceptedQueueTimeout" json:"acceptedQueueTimeout" yaml:"acceptedQueueTimeout"`

	// KeepAliveConnLimit bounds the idle keep-alive set tracked by the
	// manager.
	KeepAliveConnLimit int `mapstructure:"keepAliveConnLimit" json:"keepAliveConnLimit" yaml:"keepAliveConnLimit" validate:"gte=0"`

	// ReadBufferSize and WriteBufferSize size the per-connection stream
	// buffers; zero selects the block size.
	ReadBufferSize  int `mapstructure:"readBufferSize" json:"readBufferSize" yaml:"readBufferSize" validate:"gte=0"`
	WriteBufferSize int `mapstructure:"writeBufferSize" json:"writeBufferSize" yaml:"writeBufferSize" validate:"gte=0"`

	// MaxRequestHeaderSize and MaxRequestBodySize are the wire budgets.
	MaxRequestHeaderSize int64 `mapstructure:"maxRequestHeaderSize" json:"maxRequestHeaderSize" yaml:"maxRequestHeaderSize" validate:"gte=0"`
	MaxRequestBodySize   int64 `mapstructure:"maxRequestBodySize" json:"maxRequestBodySize" yaml:"maxRequestBodySize" validate:"gte=0"`

	// NoDelay disables Nagle on accepted TCP sockets.
	NoDelay bool `mapstructure:"noDelay" json:"noDelay" yaml:"noDelay"`

	// ReusePort sets SO_REUSEPORT where the platform supports it.
	ReusePort bool `mapstructure:"reusePort" json:"reusePort" yaml:"reusePort"`

	// PeerCredsEnabled exposes the local socket peer identity;
	// PeerCredsResolveEnabled additionally resolves names.
	PeerCredsEnabled        bool `mapstructure:"peerCredsEnabled" json:"peerCredsEnabled" yaml:"peerCredsEnabled"`
	PeerCredsResolveEnabled bool `mapstructure:"peerCredsResolveEnabled" json:"peerCredsResolveEnabled" yaml:"peerCredsResolveEnabled"`

	// DropUnderscoreHeaders installs the header reader discarding any
	// field whose name contains an underscore.
	DropUnderscoreHeaders bool `mapstructure:"dropUnderscoreHeaders" json:"dropUnderscoreHeaders" yaml:"dropUnderscoreHeaders"`

	// ProxyMode accepts authority-form targets for CONNECT.
	ProxyMode bool `mapstructure:"proxyMode" json:"proxyMode" yaml:"proxyMode"`
}

// Validate checks the configuration coherence.
func (c *Config) Validate() liberr.Error {
	err := ErrorValidatorError.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		}

		for _, e := range er.(libval.ValidationErrors) {
			//nolint goerr113
			err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
		}
	}

	if c.MaxWorkers >= 0 && c.MaxWorkers < c.MinWorkers {
		//nolint goerr113
		err.Add(fmt.Errorf("config field 'MaxWorkers' is below 'MinWorkers'"))
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// GetName returns the configured name, defaulting to the bind address.
func (c *Config) GetName() string {
	if c.Name == "" {
		return c.Listen
	}

	return c.Name
}

// IsUnixSocket reports whether Listen names a local socket.
func (c *Config) IsUnixSocket() bool {
	switch c.Protocol {
	case libptc.NetworkUnix:
		return true
	case libptc.NetworkTCP, libptc.NetworkTCP4, libptc.NetworkTCP6:
		return false
	}

	return strings.HasPrefix(c.Listen, "/") || strings.HasPrefix(c.Listen, "@")
}

// network returns the dial network string of the bind address.
func (c *Config) network() string {
	if c.IsUnixSocket() {
		return libptc.NetworkUnix.Code()
	}

	switch c.Protocol {
	case libptc.NetworkTCP4:
		return libptc.NetworkTCP4.Code()
	case libptc.NetworkTCP6:
		return libptc.NetworkTCP6.Code()
	}

	return libptc.NetworkTCP.Code()
}

// withDefaults returns a copy with every zero knob replaced by its
// default.
func (c Config) withDefaults() Config {
	if c.ServerName == "" {
		c.ServerName = DefaultServerName
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.ExpirationInterval <= 0 {
		c.ExpirationInterval = DefaultExpirationInterval
	}

	if c.MaxWorkers == 0 {
		c.MaxWorkers = -1
	}

	if c.AcceptedQueueTimeout <= 0 {
		c.AcceptedQueueTimeout = DefaultAcceptedQueueTimeout
	}

	if c.MaxRequestHeaderSize <= 0 {
		c.MaxRequestHeaderSize = DefaultMaxHeaderSize
	}

	if c.MaxRequestBodySize <= 0 {
		c.MaxRequestBodySize = DefaultMaxBodySize
	}

	return c
}
