package pac

import (
	"strings"
	"testing"
)

func TestGenerateSOCKS5IncludesDirectFallback(t *testing.T) {
	out := Generate(SOCKS5, "192.168.1.10", 1080, 8080)
	if !strings.Contains(out, "SOCKS5 192.168.1.10:1080") {
		t.Fatalf("expected SOCKS5 directive, got %s", out)
	}
	if !strings.Contains(out, "DIRECT") {
		t.Fatal("expected DIRECT fallback")
	}
}

func TestGenerateCombinedIncludesBothDirectives(t *testing.T) {
	out := Generate(Combined, "192.168.1.10", 1080, 8080)
	if !strings.Contains(out, "SOCKS5 192.168.1.10:1080") || !strings.Contains(out, "PROXY 192.168.1.10:8080") {
		t.Fatalf("expected both directives, got %s", out)
	}
}

func TestGenerateHTTPUsesProxyDirectiveOnly(t *testing.T) {
	out := Generate(HTTP, "10.0.0.1", 1080, 8080)
	if strings.Contains(out, "SOCKS5") {
		t.Fatal("expected no SOCKS5 directive for HTTP kind")
	}
	if !strings.Contains(out, "PROXY 10.0.0.1:8080") {
		t.Fatal("expected PROXY directive")
	}
}
