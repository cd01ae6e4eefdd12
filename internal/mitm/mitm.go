// Package mitm implements the TLS termination policy shared by the
// SOCKS5 and HTTP frontends: deciding whether a CONNECT tunnel should be
// intercepted and transformed or left as an opaque splice, and wrapping
// a raw connection in a server-side tls.Config backed by the cert
// factory (spec.md §4.3).
package mitm

import (
	"crypto/tls"

	"github.com/revamp-proxy/revamp/internal/certauthority"
	"github.com/revamp-proxy/revamp/internal/config"
)

// ShouldIntercept reports whether a CONNECT to (port, hostname) should
// be TLS-terminated and handed to the lifecycle controller, versus
// spliced untouched. Only port 443 is ever a MITM candidate, and only
// when the effective config for this (client, hostname) pair enables at
// least one text transform or implies legacy image support.
func ShouldIntercept(port int, cfg config.Config) bool {
	if port != 443 {
		return false
	}
	return cfg.TransformJs || cfg.TransformCss || cfg.TransformHtml || impliesLegacyImageSupport(cfg)
}

// impliesLegacyImageSupport reports whether cfg's target list names a
// browser generation old enough to need WebP/AVIF re-encoded to a
// format it can decode. Safari/iOS Safari below version 14 cannot
// decode WebP, and none before 16 can decode AVIF, so any declared
// target in that range implies the image transformer must run.
func impliesLegacyImageSupport(cfg config.Config) bool {
	for _, target := range cfg.Targets {
		if isLegacySafariTarget(target) {
			return true
		}
	}
	return false
}

func isLegacySafariTarget(target string) bool {
	// Targets are browserslist-style strings like "safari 9" or
	// "ios_saf 9"; any safari/ios_saf entry in this proxy's supported
	// range predates WebP/AVIF decode support, so presence alone is
	// sufficient without parsing out the version number.
	for _, prefix := range []string{"safari", "ios_saf"} {
		if len(target) >= len(prefix) && target[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// ServerConfig builds a tls.Config that mints a fresh leaf certificate
// per ClientHello via the cert factory, keyed by SNI (or, if absent,
// the CONNECT hostname the caller already knows, supplied as
// fallbackHostname).
func ServerConfig(factory *certauthority.Factory, fallbackHostname string) *tls.Config {
	return &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			hostname := hello.ServerName
			if hostname == "" {
				hostname = fallbackHostname
			}
			leaf, err := factory.Get(hostname)
			if err != nil {
				return nil, err
			}
			return &leaf.TLSCert, nil
		},
		MinVersion: tls.VersionTLS12,
	}
}
