package fingerprint

import (
	"testing"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/contenttype"
)

func TestCacheKeyDeterministic(t *testing.T) {
	fp := Client("1.2.3.4", config.Defaults())
	k1 := CacheKey("https://example.com/a.js", contenttype.JS, fp)
	k2 := CacheKey("https://example.com/a.js", contenttype.JS, fp)
	if k1 != k2 {
		t.Fatalf("expected deterministic key, got %s vs %s", k1, k2)
	}
	if len(k1) != 32 { // 16 bytes hex-encoded
		t.Fatalf("expected 32 hex chars, got %d", len(k1))
	}
}

func TestCacheKeyDiffersByFingerprint(t *testing.T) {
	fpA := Client("1.2.3.4", config.Defaults())
	other := config.Defaults()
	other.TransformJs = false
	fpB := Client("1.2.3.4", other)

	if fpA == fpB {
		t.Fatal("expected differing configs to produce differing fingerprints")
	}

	kA := CacheKey("https://example.com/a.js", contenttype.JS, fpA)
	kB := CacheKey("https://example.com/a.js", contenttype.JS, fpB)
	if kA == kB {
		t.Fatal("expected differing client fingerprints to produce differing cache keys")
	}
}

func TestCacheKeyDiffersByContentType(t *testing.T) {
	fp := Client("1.2.3.4", config.Defaults())
	kJS := CacheKey("https://example.com/a", contenttype.JS, fp)
	kCSS := CacheKey("https://example.com/a", contenttype.CSS, fp)
	if kJS == kCSS {
		t.Fatal("expected differing content types to produce differing keys")
	}
}
