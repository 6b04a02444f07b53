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

package tlsadapter

import (
	"net"
	"time"

	libtls "github.com/nabbar/golib/certificates"
	liberr "github.com/nabbar/golib/errors"
)

// FuncPassword produces the private key password. It is invoked at most
// twice for one key load.
type FuncPassword func() ([]byte, error)

// Options configures the builtin adapter on top of a TLS configuration:
// certificate material given as files, an optional chain appended to the
// presented certificate, and an optional password for an encrypted key.
type Options struct {
	// Certificate is the path of the PEM encoded server certificate.
	Certificate string `mapstructure:"certificate" json:"certificate" yaml:"certificate" validate:"required"`

	// PrivateKey is the path of the PEM encoded private key.
	PrivateKey string `mapstructure:"privateKey" json:"privateKey" yaml:"privateKey" validate:"required"`

	// CertificateChain is an optional path of intermediate certificates
	// appended to the presented chain.
	CertificateChain string `mapstructure:"certificateChain" json:"certificateChain" yaml:"certificateChain"`

	// Password unlocks an encrypted private key. Exclusive with
	// PasswordFct.
	Password []byte `mapstructure:"-" json:"-" yaml:"-"`

	// PasswordFct produces the password on demand, called at most twice.
	PasswordFct FuncPassword `mapstructure:"-" json:"-" yaml:"-"`
}

// Adapter is the strategy wrapping raw accepted sockets into TLS streams.
type Adapter interface {
	// Prepare gives the adapter a chance to replace the listening socket.
	// The builtin adapter leaves it untouched, the handshake being driven
	// per connection by Wrap.
	Prepare(l net.Listener) (net.Listener, liberr.Error)

	// Wrap runs the handshake on an accepted socket within the given
	// budget and returns the encrypted stream plus the certificate
	// environment. A plain HTTP client is reported as (nil, nil, nil):
	// the caller must answer a clear-text 400 and close. Benign handshake
	// failures return a non-nil error: the caller closes silently.
	Wrap(s net.Conn, d time.Duration) (net.Conn, map[string]string, liberr.Error)

	// Environ rebuilds the certificate environment of an already wrapped
	// connection. An unwrapped connection yields an empty map.
	Environ(s net.Conn) map[string]string
}

// New builds the builtin adapter from a TLS configuration and certificate
// material options.
func New(cfg libtls.Config, opt Options) (Adapter, liberr.Error) {
	if opt.Certificate == "" || opt.PrivateKey == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	var o = &builtin{
		cfg: cfg,
		opt: opt,
	}

	if err := o.load(); err != nil {
		return nil, err
	}

	return o, nil
}
