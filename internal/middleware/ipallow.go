package middleware

import (
	"net"
	"net/http"
)

// IPAllowlist restricts a route to a static set of source IPs. Loopback is
// always allowed so local testing works without configuration. An empty
// allow-list lets everything through.
func IPAllowlist(allowed []string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		allowedSet[ip] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if ip == "127.0.0.1" || ip == "::1" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowedSet[ip]; ok {
				next.ServeHTTP(w, r)
				return
			}

			http.Error(w, "this IP is not allowed to access this endpoint", http.StatusForbidden)
		})
	}
}
