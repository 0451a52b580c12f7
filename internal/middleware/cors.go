// Package middleware provides HTTP middleware for the admin console.
package middleware

import "net/http"

// CORS returns middleware that handles CORS headers.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if match := matchOrigin(allowedOrigins, origin); origin != "" && match != originDenied {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Console-Nonce")
				w.Header().Add("Vary", "Origin")
				// wildcard matches never get credentials
				if match == originExact {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type originMatch int

const (
	originDenied originMatch = iota
	originWildcard
	originExact
)

func matchOrigin(allowed []string, origin string) originMatch {
	match := originDenied
	for _, o := range allowed {
		switch {
		case o == origin:
			return originExact
		case o == "*":
			match = originWildcard
		}
	}
	return match
}
