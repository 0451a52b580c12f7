package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/identity"
)

func withAdmin(r *http.Request, nonce string) *http.Request {
	ctx := identity.WithAdmin(context.Background(), &domain.Admin{AdminID: "a1", Nonce: nonce})
	return r.WithContext(ctx)
}

func TestRequireNonce(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireNonce(ok)

	form := func(nonce string) *http.Request {
		body := url.Values{"nonce": {nonce}, "tag": {"web"}}.Encode()
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return r
	}

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"get passes", withAdmin(httptest.NewRequest(http.MethodGet, "/x", nil), "n"), http.StatusNoContent},
		{"form nonce", withAdmin(form("n"), "n"), http.StatusNoContent},
		{"wrong nonce", withAdmin(form("m"), "n"), http.StatusForbidden},
		{"no admin nonce", withAdmin(form(""), ""), http.StatusForbidden},
		{"header nonce", func() *http.Request {
			r := httptest.NewRequest(http.MethodDelete, "/x", nil)
			r.Header.Set(NonceHeader, "n")
			return withAdmin(r, "n")
		}(), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("exact origin gets credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://ctf.example")
		rec := httptest.NewRecorder()
		CORS([]string{"*", "https://ctf.example"})(next).ServeHTTP(rec, r)

		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Allow-Credentials = %q", got)
		}
	})

	t.Run("wildcard origin has no credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://other.example")
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(rec, r)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://other.example" {
			t.Errorf("Allow-Origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
			t.Errorf("Allow-Credentials = %q", got)
		}
	})

	t.Run("preflight short circuits", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/", nil)
		rec := httptest.NewRecorder()
		CORS([]string{"*"})(next).ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})
}
