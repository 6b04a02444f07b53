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
	"crypto/x509/pkix"
	"strings"
)

// certEnviron serializes the TLS session and both certificate subjects into
// the request environment. Distinguished name components are joined with a
// comma and values are kept as UTF-8.
func certEnviron(st tls.ConnectionState, srv *x509.Certificate) map[string]string {
	env := map[string]string{
		"HTTPS":        "on",
		"SSL_PROTOCOL": tls.VersionName(st.Version),
		"SSL_CIPHER":   tls.CipherSuiteName(st.CipherSuite),
	}

	if len(st.VerifiedChains) > 0 {
		env["SSL_CLIENT_VERIFY"] = "SUCCESS"
	} else if len(st.PeerCertificates) > 0 {
		env["SSL_CLIENT_VERIFY"] = "FAILED"
	} else {
		env["SSL_CLIENT_VERIFY"] = "NONE"
	}

	if len(st.PeerCertificates) > 0 {
		dnEnviron(env, "SSL_CLIENT_S_DN", st.PeerCertificates[0].Subject)
		dnEnviron(env, "SSL_CLIENT_I_DN", st.PeerCertificates[0].Issuer)
	}

	if srv != nil {
		dnEnviron(env, "SSL_SERVER_S_DN", srv.Subject)
		dnEnviron(env, "SSL_SERVER_I_DN", srv.Issuer)
	}

	return env
}

func dnEnviron(env map[string]string, prefix string, dn pkix.Name) {
	var cmp []string

	add := func(code string, val []string) {
		if len(val) == 0 {
			return
		}

		env[prefix+"_"+code] = strings.Join(val, ",")

		for _, v := range val {
			cmp = append(cmp, code+"="+v)
		}
	}

	add("C", dn.Country)
	add("ST", dn.Province)
	add("L", dn.Locality)
	add("O", dn.Organization)
	add("OU", dn.OrganizationalUnit)

	if dn.CommonName != "" {
		add("CN", []string{dn.CommonName})
	}

	if dn.SerialNumber != "" {
		env[prefix+"_serialNumber"] = dn.SerialNumber
		cmp = append(cmp, "serialNumber="+dn.SerialNumber)
	}

	env[prefix] = strings.Join(cmp, ",")
}
