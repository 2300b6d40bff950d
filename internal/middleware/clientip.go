package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const clientIPContextKey contextKey = "client_ip"

// ProxyTrust resolves the client address of a request. Forwarding headers are
// only honored when the direct peer is inside one of the trusted networks.
type ProxyTrust struct {
	networks []netip.Prefix
}

func NewProxyTrust(networks []netip.Prefix) *ProxyTrust {
	return &ProxyTrust{networks: networks}
}

// Handler stores the resolved client address on the request context, where
// ClientIP picks it up. It must run before anything that logs or limits by IP.
func (p *ProxyTrust) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPContextKey, p.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolve walks X-Forwarded-For from the nearest hop outwards and returns the
// first address that is not a trusted proxy. X-Real-IP is used when no
// X-Forwarded-For is present.
func (p *ProxyTrust) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	if !p.trusted(peer) {
		return peer
	}

	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !p.trusted(hop) || i == 0 {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func (p *ProxyTrust) trusted(host string) bool {
	if p == nil || len(p.networks) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, network := range p.networks {
		if network.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address resolved by ProxyTrust, or the direct peer when
// the request did not pass through it.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPContextKey).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remote)
	if err == nil && host != "" {
		return host
	}
	return remote
}
