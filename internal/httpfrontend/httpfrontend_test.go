package httpfrontend

import (
	"net/http"
	"net/url"
	"testing"
)

func TestIsSelfRequestMatchesHostAndPrefix(t *testing.T) {
	req := &http.Request{
		Host: "127.0.0.1:8888",
		URL:  &url.URL{Path: "/__revamp__/config"},
	}
	if !isSelfRequest(req, "127.0.0.1", 8888) {
		t.Fatal("expected self request to match")
	}
}

func TestIsSelfRequestRejectsOtherHost(t *testing.T) {
	req := &http.Request{
		Host: "example.com",
		URL:  &url.URL{Path: "/__revamp__/config"},
	}
	if isSelfRequest(req, "127.0.0.1", 8888) {
		t.Fatal("expected non-matching host to be rejected")
	}
}

func TestIsSelfRequestRejectsNonInternalPath(t *testing.T) {
	req := &http.Request{
		Host: "127.0.0.1:8888",
		URL:  &url.URL{Path: "/favicon.ico"},
	}
	if isSelfRequest(req, "127.0.0.1", 8888) {
		t.Fatal("expected a path outside the internal prefix to be rejected")
	}
}

func TestProxyOnlyHeadersAreStripped(t *testing.T) {
	header := http.Header{}
	header.Set("Proxy-Connection", "keep-alive")
	header.Set("Proxy-Authorization", "Basic xyz")
	header.Set("Accept", "*/*")

	for _, h := range proxyOnlyHeaders {
		header.Del(h)
	}

	if header.Get("Proxy-Connection") != "" || header.Get("Proxy-Authorization") != "" {
		t.Fatal("expected proxy-only headers to be removed")
	}
	if header.Get("Accept") != "*/*" {
		t.Fatal("expected unrelated headers to survive")
	}
}
