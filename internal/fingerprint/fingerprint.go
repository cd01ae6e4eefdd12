// Package fingerprint implements the canonical client-fingerprint and
// cache-key formulas (spec.md §4.5/§9). Both are SHA-256 based: hashing is
// not a concern any example repo in the corpus reaches for a third-party
// library for, so this stays on crypto/sha256.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/revamp-proxy/revamp/internal/config"
	"github.com/revamp-proxy/revamp/internal/contenttype"
)

// Client derives a stable opaque fingerprint from a client IP and its
// resolved effective config, so that two clients with differing configs
// never share cache entries. configHash is SHA256 over the JSON encoding
// of cfg, which is deterministic because encoding/json writes struct
// fields in their declaration order.
func Client(clientIP string, cfg config.Config) string {
	cfgJSON, _ := json.Marshal(cfg)
	cfgHash := sha256.Sum256(cfgJSON)
	h := sha256.New()
	h.Write([]byte(clientIP))
	h.Write([]byte{0})
	h.Write(cfgHash[:])
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey computes fingerprint = H(url || "\0" || classified_content_type
// || "\0" || client_fingerprint), returning the first 128 bits hex-encoded
// for use as a cache filename, per spec.md §4.5.
func CacheKey(url string, ct contenttype.Type, clientFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(ct.String()))
	h.Write([]byte{0})
	h.Write([]byte(clientFingerprint))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
