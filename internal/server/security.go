package server

import (
	"net/http"
	"strconv"
	"strings"
)

// SecurityConfig holds the response hardening and request limits.
type SecurityConfig struct {
	EnableCORS bool
	// AllowedOrigins lists the CORS origins; "*" allows any.
	AllowedOrigins []string
	AllowedMethods []string
	// MaxWork is the maximum sources × visibilities of one request. 0 means
	// unlimited.
	MaxWork int64
	// MaxBodyBytes caps the request body read by /extract.
	MaxBodyBytes int64
}

// DefaultSecurityConfig returns the production settings: CORS for any
// origin, at most 10^9 source-visibility pairs and 64 MiB bodies.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		MaxWork:        1_000_000_000,
		MaxBodyBytes:   64 << 20,
	}
}

// SecurityMiddleware sets the hardening headers, answers CORS preflight
// requests and otherwise calls next.
func SecurityMiddleware(config SecurityConfig, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if config.EnableCORS {
			if origin := matchOrigin(config.AllowedOrigins, r.Header.Get("Origin")); origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Accept-Encoding, X-Request-ID")
				h.Set("Access-Control-Max-Age", "86400")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next(w, r)
	}
}

func matchOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return a
		}
	}
	return ""
}

// formatWork renders a work limit for logs.
func formatWork(maxWork int64) string {
	if maxWork <= 0 {
		return "unlimited"
	}
	return strconv.FormatInt(maxWork, 10)
}
