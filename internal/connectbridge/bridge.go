// Package connectbridge holds the TLS-terminate-then-parse-one-request
// logic shared by the SOCKS5 and HTTP frontends once they've decided a
// CONNECT tunnel should be MITM'd rather than spliced (spec.md §4.1/§4.2
// share the same MITM policy verbatim).
package connectbridge

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/revamp-proxy/revamp/internal/certauthority"
	"github.com/revamp-proxy/revamp/internal/lifecycle"
	"github.com/revamp-proxy/revamp/internal/mitm"
)

// TerminateAndReadRequest completes a server-side TLS handshake on
// clientConn (whose unread bytes may already be buffered in
// clientReader) and parses exactly one HTTP request off the resulting
// TLS stream, per spec.md §4.1's "parse one HTTP request" MITM
// contract. It reports ok=false on any handshake or parse failure, in
// which case the caller should fall back to a raw splice of the
// original connection.
func TerminateAndReadRequest(clientConn net.Conn, clientReader *bufio.Reader, factory *certauthority.Factory, fallbackHostname string) (tlsConn *tls.Conn, req *http.Request, ok bool) {
	tlsConn = tls.Server(&bufferedConn{Conn: clientConn, r: clientReader}, mitm.ServerConfig(factory, fallbackHostname))
	if err := tlsConn.Handshake(); err != nil {
		return nil, nil, false
	}

	req, err := http.ReadRequest(bufio.NewReader(tlsConn))
	if err != nil {
		return nil, nil, false
	}
	return tlsConn, req, true
}

// WriteResponse serializes a lifecycle.Response onto conn as a complete
// HTTP/1.1 response.
func WriteResponse(conn net.Conn, resp *lifecycle.Response) error {
	httpResp := &http.Response{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     resp.Header,
		Body:       io.NopCloser(bytes.NewReader(resp.Body)),
	}
	if httpResp.Header == nil {
		httpResp.Header = http.Header{}
	}
	httpResp.ContentLength = int64(len(resp.Body))
	return httpResp.Write(conn)
}

// WriteError serializes a response describing err, mapped to the status
// spec.md §7 assigns its kind: an upstream timeout is a 504 Gateway
// Timeout, everything else a 502 Bad Gateway.
func WriteError(conn net.Conn, err error) error {
	status := statusFor(err)
	body := []byte(fmt.Sprintf("revamp: %v", err))
	httpResp := &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
	return httpResp.Write(conn)
}

func statusFor(err error) int {
	if errors.Is(err, lifecycle.ErrUpstreamTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// bufferedConn wraps a net.Conn so reads are satisfied first from a
// bufio.Reader that may already hold bytes the SOCKS5/HTTP frontend
// peeked while detecting the CONNECT request, before falling through to
// the underlying connection.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	return b.r.Read(p)
}
