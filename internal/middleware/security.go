package middleware

import (
	"net/http"
	"path"
	"strings"
)

var sensitiveExtensions = map[string]struct{}{
	".env":    {},
	".config": {},
	".json":   {},
	".md":     {},
	".txt":    {},
}

var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// BlockSensitiveFiles answers 404 for paths that look like config or text files.
func BlockSensitiveFiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, blocked := sensitiveExtensions[strings.ToLower(path.Ext(r.URL.Path))]; blocked {
			http.Error(w, "Not Found", http.StatusNotFound)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders adds the fixed set of security headers to every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}

		next.ServeHTTP(w, r)
	})
}
