package router

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/shandysiswandi/taskdeck/internal/pkg/config"
)

type clientIPKey struct{}

// ClientIP returns the caller address resolved for the request, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// trustedProxies reads app.server.trusted_proxies. Entries are prefixes or
// single addresses.
func trustedProxies(cfg config.Config) []netip.Prefix {
	if cfg == nil {
		return nil
	}

	var out []netip.Prefix
	for _, raw := range cfg.GetArray("app.server.trusted_proxies") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(raw); err == nil {
			out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy", "value", raw)
	}
	return out
}

// middlewareClientIP replaces RemoteAddr with the caller address. Forwarding
// headers are believed only when the direct peer is a trusted proxy.
func middlewareClientIP(cfg config.Config) Middleware {
	trusted := trustedProxies(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := clientIP(r, trusted); ip.IsValid() {
				r.RemoteAddr = ip.String()
				r = r.WithContext(context.WithValue(r.Context(), clientIPKey{}, ip.String()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trusted []netip.Prefix) netip.Addr {
	peer := parseAddr(r.RemoteAddr)
	if !peer.IsValid() {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			peer = parseAddr(host)
		}
	}
	if !peer.IsValid() || !isTrusted(peer, trusted) {
		return peer
	}

	// the right-most hop not added by one of our proxies is the client
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := parseAddr(hops[i])
		if !hop.IsValid() {
			break
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
	}

	if xrip := parseAddr(r.Header.Get("X-Real-IP")); xrip.IsValid() {
		return xrip
	}

	return peer
}

func parseAddr(raw string) netip.Addr {
	a, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}
	}
	return a.Unmap()
}

func isTrusted(a netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
