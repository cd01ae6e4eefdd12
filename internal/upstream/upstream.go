// Package upstream implements the fetch engine: it forwards a client
// request to whatever origin host it targets, scrubs headers that would
// defeat transformation or caching, decompresses the body, and detects
// redirects so they can be excluded from caching and transformation
// (spec.md §4.5). It generalizes the oci-pull-through proxy's
// UpstreamClient, which talked to exactly one kind of upstream (a
// fixed-shape OCI registry endpoint) rather than an arbitrary per-request
// host.
package upstream

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/revamp-proxy/revamp/internal/contenttype"
	"github.com/revamp-proxy/revamp/internal/lifecycle"
)

// MaxBodyBytes caps how much of an upstream response body the fetch
// engine will buffer. A body larger than this fails with
// ErrBodyTooLarge rather than being partially read and served, per
// spec.md §9's guard against pathological large downloads.
const MaxBodyBytes = 32 * 1024 * 1024

// hopByHopHeaders are stripped from both the outbound request and the
// response, per RFC 7230 §6.1 — they describe this one connection, not
// the resource.
var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade", "Proxy-Connection",
}

// Client forwards requests to arbitrary upstream hosts.
type Client struct {
	http *http.Client
}

// New builds a Client with a transport tuned like the oci-pull-through
// proxy's: bounded dial/handshake/idle timeouts, redirects left to the
// caller to observe via CheckRedirect rather than silently followed.
func New() *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Result is the outcome of a single upstream fetch: the response status
// and headers, the (decompressed, size-capped) body, whether it was a
// redirect, and its classified content type.
type Result struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	IsRedirect  bool
	ContentType contenttype.Type
}

// Fetch issues method against targetURL on behalf of the given inbound
// request, scrubbing hop-by-hop and cache-defeating headers, then reads
// and decompresses the response body up to MaxBodyBytes.
func (c *Client) Fetch(ctx context.Context, method, targetURL string, in http.Header, transformable bool) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, targetURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", lifecycle.ErrValidation, err)
	}
	req.Header = scrubRequestHeaders(in, transformable)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%w: %v", lifecycle.ErrUpstreamTimeout, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: %v", lifecycle.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if isRedirectStatus(resp.StatusCode) {
		return Result{StatusCode: resp.StatusCode, Header: resp.Header, IsRedirect: true}, nil
	}

	limited := io.LimitReader(resp.Body, MaxBodyBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", lifecycle.ErrUpstreamUnreachable, err)
	}
	if len(raw) > MaxBodyBytes {
		return Result{}, fmt.Errorf("%w: body exceeds %d bytes", lifecycle.ErrBodyTooLarge, MaxBodyBytes)
	}

	encoding := resp.Header.Get("Content-Encoding")
	body, decompressed, decompressErr := decompress(encoding, raw)
	if decompressErr != nil {
		slog.Warn("failed to decompress upstream body, forwarding as received",
			"url", targetURL, "encoding", encoding, "error", decompressErr)
	}

	header := scrubResponseHeaders(resp.Header)
	if !decompressed && encoding != "" {
		// body is still in its original encoding; tell the caller so it
		// isn't mistaken for plain text.
		header.Set("Content-Encoding", encoding)
	}

	ct := contenttype.Classify(resp.Header.Get("Content-Type"), targetURL)

	return Result{
		StatusCode:  resp.StatusCode,
		Header:      header,
		Body:        body,
		ContentType: ct,
	}, nil
}

// scrubRequestHeaders copies in, dropping hop-by-hop headers and, for
// transformable (JS/CSS/HTML) requests, the conditional-request headers
// that would otherwise make the origin answer 304 Not Modified — a
// response this proxy can't transform or cache against its own fingerprint
// — plus restricting Accept-Encoding to codings Fetch can decompress.
func scrubRequestHeaders(in http.Header, transformable bool) http.Header {
	out := in.Clone()
	for _, h := range hopByHopHeaders {
		out.Del(h)
	}
	if transformable {
		out.Del("If-None-Match")
		out.Del("If-Modified-Since")
	}
	out.Set("Accept-Encoding", "gzip, deflate")
	return out
}

func scrubResponseHeaders(in http.Header) http.Header {
	out := in.Clone()
	for _, h := range hopByHopHeaders {
		out.Del(h)
	}
	out.Del("Content-Encoding")
	out.Del("Content-Length")
	return out
}

// decompress decodes raw per encoding. On a decode failure it returns
// raw unmodified and decompressed=false rather than erroring: a client
// that can't itself decompress gzip/deflate is no worse off forwarding
// the original bytes than it would be getting nothing at all (spec.md
// §7's DecompressionError handling).
func decompress(encoding string, raw []byte) (body []byte, decompressed bool, err error) {
	var r io.Reader
	switch strings.ToLower(encoding) {
	case "gzip":
		gr, gerr := gzip.NewReader(bytes.NewReader(raw))
		if gerr != nil {
			return raw, false, gerr
		}
		r = gr
	case "deflate":
		zr, zerr := zlib.NewReader(bytes.NewReader(raw))
		if zerr != nil {
			return raw, false, zerr
		}
		r = zr
	default:
		return raw, false, nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return raw, false, err
	}
	return out, true, nil
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
