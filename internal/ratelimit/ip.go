package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP derives the client identity from the first usable value among the
// forwarded-for header, the proxy header, and the raw connection address.
// When proxies chain addresses with commas, the first entry is the client.
func ClientIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if v := r.Header.Get(header); v != "" && !strings.EqualFold(v, "unknown") {
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
