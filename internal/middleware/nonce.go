package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tamuctf/CTFd/internal/identity"
)

// NonceField is the form field carrying the console nonce.
const NonceField = "nonce"

// NonceHeader carries the console nonce for script requests.
const NonceHeader = "X-Console-Nonce"

// maxFormMemory bounds multipart parsing before a request reaches a handler.
const maxFormMemory = 32 << 20

// RequireNonce rejects mutating requests that do not carry the admin's
// console nonce, either as a form field or in the X-Console-Nonce header.
func RequireNonce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		want := identity.NonceFromContext(r.Context())
		got := r.Header.Get(NonceHeader)
		if got == "" {
			if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
				http.Error(w, `{"error":"malformed form"}`, http.StatusBadRequest)
				return
			}
			got = r.FormValue(NonceField)
		}

		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			slog.Warn("Console nonce rejected",
				"admin_id", identity.AdminIDFromContext(r.Context()),
				"ip", identity.IPFromRequest(r),
				"path", r.URL.Path)
			http.Error(w, `{"error":"invalid nonce"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
