package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// HostOnly drops an optional port from "host:port", "[v6]:port" or "[v6]".
func HostOnly(s string) string {
	s = strings.TrimSpace(s)
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
}

// ClientIP returns the caller's address in canonical form.
//
// With trustProxy set, CF-Connecting-IP, the left-most X-Forwarded-For entry
// and X-Real-IP are tried in that order; values that are not IP addresses are
// skipped. RemoteAddr is the last resort and is returned as-is (port removed)
// when it does not parse.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, v := range proxyHeaders(r.Header) {
			if addr, ok := parseAddr(v); ok {
				return addr.String()
			}
		}
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return HostOnly(r.RemoteAddr)
}

func proxyHeaders(h http.Header) []string {
	forwarded, _, _ := strings.Cut(h.Get("X-Forwarded-For"), ",")
	return []string{h.Get("CF-Connecting-IP"), forwarded, h.Get("X-Real-IP")}
}

// parseAddr accepts an address with or without a port. IPv4-mapped IPv6
// addresses are unmapped and zones dropped so they compare against prefixes.
func parseAddr(s string) (netip.Addr, bool) {
	host := HostOnly(s)
	if host == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}

// IPMatcher matches addresses against an allow-list of IPs and CIDRs.
// Single IPs are stored as full-length prefixes.
type IPMatcher struct {
	prefixes []netip.Prefix
}

// NewIPMatcher skips blank and unparsable entries.
func NewIPMatcher(list []string) *IPMatcher {
	m := &IPMatcher{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if addr, ok := parseAddr(s); ok {
			m.prefixes = append(m.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return m
}

func (m *IPMatcher) IsEmpty() bool {
	return len(m.prefixes) == 0
}

func (m *IPMatcher) Allow(ip string) bool {
	addr, ok := parseAddr(ip)
	if !ok {
		return false
	}
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
