package middleware

import (
	"net/http"
	"strings"
)

// Normalize standardizes request fields coming through proxies.
//   - Trims whitespace around URL.Path and collapses a trailing slash on API routes
//   - Restores scheme/host from forwarding headers for logs and redirect URLs
//   - Trims the Authorization header, which copied tokens often carry a newline in
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.URL.Path = normalizePath(r.URL.Path)
			// 路由器优先使用 RawPath，两者要保持一致
			if r.URL.RawPath != "" {
				r.URL.RawPath = normalizePath(r.URL.RawPath)
			}

			if xfproto := r.Header.Get("X-Forwarded-Proto"); xfproto != "" {
				r.URL.Scheme = xfproto
			}
			if xfhost := r.Header.Get("X-Forwarded-Host"); xfhost != "" {
				r.Host = xfhost
			}

			if authz := r.Header.Get("Authorization"); authz != "" {
				r.Header.Set("Authorization", strings.TrimSpace(authz))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 && strings.HasPrefix(p, "/api/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
