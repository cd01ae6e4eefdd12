// Package pac renders Proxy Auto-Config files so a legacy browser that
// supports PAC (Safari 9/iOS 9 both do) can be pointed at Revamp without
// manual per-app proxy configuration (spec.md §4.8's
// /__revamp__/pac/{socks5,http,combined} endpoint).
package pac

import "fmt"

// Kind selects which proxy directive(s) the generated PAC file names.
type Kind int

const (
	SOCKS5 Kind = iota
	HTTP
	Combined
)

// Generate renders a PAC file directing all traffic to host at the
// given port(s), with DIRECT as the fallback FindProxyForURL always
// appends.
func Generate(kind Kind, host string, socks5Port, httpPort int) string {
	var directive string
	switch kind {
	case SOCKS5:
		directive = fmt.Sprintf("SOCKS5 %s:%d", host, socks5Port)
	case HTTP:
		directive = fmt.Sprintf("PROXY %s:%d", host, httpPort)
	default:
		directive = fmt.Sprintf("SOCKS5 %s:%d; PROXY %s:%d", host, socks5Port, host, httpPort)
	}

	return fmt.Sprintf(`function FindProxyForURL(url, host) {
    return "%s; DIRECT";
}
`, directive)
}
