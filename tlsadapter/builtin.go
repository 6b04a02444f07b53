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
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"

	libtls "github.com/nabbar/golib/certificates"
	liberr "github.com/nabbar/golib/errors"
)

type builtin struct {
	cfg libtls.Config
	opt Options
	tls *tls.Config
	crt *x509.Certificate
}

func (o *builtin) load() liberr.Error {
	var (
		crt []byte
		key []byte
		err error
	)

	if crt, err = os.ReadFile(o.opt.Certificate); err != nil {
		return ErrorCertificateLoad.Error(err)
	}

	if key, err = os.ReadFile(o.opt.PrivateKey); err != nil {
		return ErrorCertificateLoad.Error(err)
	}

	if key, err = o.decryptKey(key); err != nil {
		return ErrorKeyDecrypt.Error(err)
	}

	if o.opt.CertificateChain != "" {
		var chn []byte

		if chn, err = os.ReadFile(o.opt.CertificateChain); err != nil {
			return ErrorCertificateLoad.Error(err)
		}

		crt = append(crt, '\n')
		crt = append(crt, chn...)
	}

	var pair tls.Certificate

	if pair, err = tls.X509KeyPair(crt, key); err != nil {
		return ErrorCertificateLoad.Error(err)
	}

	cfg := o.cfg.New().TlsConfig("")
	cfg.Certificates = []tls.Certificate{pair}

	o.tls = cfg

	if len(pair.Certificate) > 0 {
		if leaf, e := x509.ParseCertificate(pair.Certificate[0]); e == nil {
			o.crt = leaf
		}
	}

	return nil
}

// decryptKey unlocks a PEM encrypted private key. The password callable is
// tried at most twice before the load fails.
func (o *builtin) decryptKey(key []byte) ([]byte, error) {
	blk, _ := pem.Decode(key)

	if blk == nil {
		return nil, errors.New("no pem block found in private key")
	}

	//nolint:staticcheck
	if !x509.IsEncryptedPEMBlock(blk) {
		return key, nil
	}

	var try = 0

	for {
		pwd, err := o.password()
		if err != nil {
			return nil, err
		}

		//nolint:staticcheck
		der, err := x509.DecryptPEMBlock(blk, pwd)

		if err == nil {
			return pem.EncodeToMemory(&pem.Block{
				Type:  blk.Type,
				Bytes: der,
			}), nil
		}

		try++

		if try >= 2 || o.opt.PasswordFct == nil {
			return nil, err
		}
	}
}

func (o *builtin) password() ([]byte, error) {
	if o.opt.PasswordFct != nil {
		return o.opt.PasswordFct()
	}

	return o.opt.Password, nil
}

func (o *builtin) Prepare(l net.Listener) (net.Listener, liberr.Error) {
	return l, nil
}

func (o *builtin) Wrap(s net.Conn, d time.Duration) (net.Conn, map[string]string, liberr.Error) {
	if s == nil {
		return nil, nil, ErrorParamEmpty.Error(nil)
	}

	t := tls.Server(s, o.tls)

	if d > 0 {
		_ = s.SetDeadline(time.Now().Add(d))
	}

	err := t.Handshake()

	if d > 0 {
		_ = s.SetDeadline(time.Time{})
	}

	if err != nil {
		if isPlainHTTP(err) {
			return nil, nil, nil
		}

		if isBenignHandshakeError(err) {
			return nil, nil, ErrorHandshakeBenign.Error(nil)
		}

		return nil, nil, ErrorHandshake.Error(err)
	}

	return t, o.Environ(t), nil
}

func (o *builtin) Environ(s net.Conn) map[string]string {
	t, ok := s.(*tls.Conn)

	if !ok {
		return map[string]string{}
	}

	return certEnviron(t.ConnectionState(), o.crt)
}

// isPlainHTTP recognizes a handshake record that is really the start of a
// clear-text HTTP request sent to the TLS port.
func isPlainHTTP(err error) bool {
	var rhe tls.RecordHeaderError

	if !errors.As(err, &rhe) {
		return false
	}

	return recordLooksLikeHTTP(rhe.RecordHeader)
}

func recordLooksLikeHTTP(hdr [5]byte) bool {
	switch string(hdr[:]) {
	case "GET /", "HEAD ", "POST ", "PUT /", "OPTIO", "DELET", "PATCH", "TRACE", "CONNE", "PRI *":
		return true
	}

	return false
}

// isBenignHandshakeError matches the failure modes that are closed without
// any logging noise: clients probing and hanging up, version mismatches,
// proxy CONNECT attempts.
func isBenignHandshakeError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var msg = err.Error()

	for _, frg := range []string{
		"protocol version not supported",
		"no supported versions",
		"https proxy request",
		"unknown error",
		"connection reset by peer",
		"closed pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, frg) {
			return true
		}
	}

	return false
}
