package certauthority

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// leafValidity and leafClockSkew bound the minted certificate's validity
// window, per spec.md §4.3: [now-5min, now+30days].
const (
	leafValidity   = 30 * 24 * time.Hour
	leafClockSkew  = 5 * time.Minute
	rotateWithin   = 24 * time.Hour
	defaultLRUSize = 4096
)

// Leaf is a minted per-hostname certificate, ready to hand to
// tls.Config.GetCertificate.
type Leaf struct {
	Hostname string
	NotAfter time.Time
	TLSCert  tls.Certificate
}

// Factory mints and caches leaf certificates under a RootCA. Minting is
// single-flighted per hostname (golang.org/x/sync/singleflight, grounded
// on datum-cloud-network-services-operator's per-resource singleflight.Group
// fields) so concurrent CONNECTs for a new host produce exactly one CSR.
// The cache itself is an LRU of at least 4096 entries
// (github.com/hashicorp/golang-lru/v2, declared in the teleport example's
// go.mod) keyed by hostname; eviction is pure LRU, with expired entries
// regenerated transparently on next access.
type Factory struct {
	root  *RootCA
	cache *lru.Cache[string, *Leaf]
	sf    singleflight.Group
}

// NewFactory builds a Factory with an LRU sized to at least 4096 entries.
func NewFactory(root *RootCA) (*Factory, error) {
	cache, err := lru.New[string, *Leaf](defaultLRUSize)
	if err != nil {
		return nil, err
	}
	return &Factory{root: root, cache: cache}, nil
}

// Get returns a valid leaf certificate for hostname, minting (and
// caching) one if necessary, or if the cached entry is within one day of
// expiry.
func (f *Factory) Get(hostname string) (*Leaf, error) {
	hostname = strings.ToLower(hostname)

	if leaf, ok := f.cache.Get(hostname); ok && time.Until(leaf.NotAfter) > rotateWithin {
		return leaf, nil
	}

	result, err, _ := f.sf.Do(hostname, func() (any, error) {
		// Re-check under single-flight: another goroutine may have just
		// minted a fresh leaf while we were waiting to enter Do.
		if leaf, ok := f.cache.Get(hostname); ok && time.Until(leaf.NotAfter) > rotateWithin {
			return leaf, nil
		}
		leaf, err := f.mint(hostname)
		if err != nil {
			return nil, err
		}
		f.cache.Add(hostname, leaf)
		return leaf, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Leaf), nil
}

func (f *Factory) mint(hostname string) (*Leaf, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("certauthority: generating leaf key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	notBefore := time.Now().Add(-leafClockSkew)
	notAfter := time.Now().Add(leafValidity)

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: hostname},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     sanNames(hostname),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, f.root.Cert, &key.PublicKey, f.root.Key)
	if err != nil {
		return nil, fmt.Errorf("certauthority: signing leaf for %s: %w", hostname, err)
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{der, f.root.CertDER},
		PrivateKey:  key,
	}

	return &Leaf{Hostname: hostname, NotAfter: notAfter, TLSCert: tlsCert}, nil
}

// sanNames returns the hostname plus the wildcard mechanically implied by
// its two-label suffix, when hostname has at least 3 labels, per
// spec.md §4.3 (e.g. "mail.example.com" also gets "*.example.com", so the
// same leaf covers sibling subdomains without a fresh mint).
func sanNames(hostname string) []string {
	labels := strings.Split(hostname, ".")
	names := []string{hostname}
	if len(labels) >= 3 {
		suffix := strings.Join(labels[len(labels)-2:], ".")
		names = append(names, "*."+suffix)
	}
	return dedupe(names)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
