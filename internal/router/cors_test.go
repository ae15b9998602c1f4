package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"multisearch/internal/config"
)

func corsOK(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestWithCORS_AllowsSingleOrigin(t *testing.T) {
	h := withCORS(config.CORSConfig{AllowOrigin: "http://localhost:3000"}, corsOK)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("unexpected vary: %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition, X-Request-ID" {
		t.Fatalf("unexpected expose headers: %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "" {
		t.Fatalf("preflight headers on a simple request: max-age %q", got)
	}
}

func TestWithCORS_WildcardWithCredentialsEchoesOrigin(t *testing.T) {
	h := withCORS(config.CORSConfig{AllowOrigin: "*", AllowCredentials: true}, corsOK)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set("Origin", "http://museum.example")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://museum.example" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("credentials header missing: %q", got)
	}
}

func TestWithCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	h := withCORS(config.CORSConfig{}, func(w http.ResponseWriter, r *http.Request) { called = true })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodOptions, "/api/search", nil))

	if called {
		t.Fatalf("preflight must not reach the handler")
	}
	if w.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Fatalf("unexpected allow methods: %q", got)
	}
}

func TestWithCORS_PreflightRefusals(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.CORSConfig
		origin   string
		method   string
		wantCode int
	}{
		{"get from listed origin", config.CORSConfig{AllowOrigin: "http://cbs:3000"}, "http://cbs:3000", http.MethodGet, http.StatusNoContent},
		{"get from any origin", config.CORSConfig{AllowOrigin: "*"}, "http://museum.example", http.MethodGet, http.StatusNoContent},
		{"post is never allowed", config.CORSConfig{AllowOrigin: "*"}, "http://museum.example", http.MethodPost, http.StatusForbidden},
		{"delete from listed origin", config.CORSConfig{AllowOrigin: "http://cbs:3000"}, "http://cbs:3000", http.MethodDelete, http.StatusForbidden},
		{"unlisted origin", config.CORSConfig{AllowOrigin: "http://cbs:3000", AllowCredentials: true}, "http://evil.example", http.MethodGet, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := withCORS(tt.cfg, func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", tt.method)
			w := httptest.NewRecorder()
			h(w, req)

			if called {
				t.Fatalf("preflight must not reach the handler")
			}
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			allow := w.Header().Get("Access-Control-Allow-Origin")
			if tt.wantCode == http.StatusForbidden && (allow != "" || w.Header().Get("Access-Control-Allow-Credentials") != "") {
				t.Fatalf("refused preflight leaked allow headers: %v", w.Header())
			}
			if tt.wantCode == http.StatusNoContent && allow == "" {
				t.Fatalf("accepted preflight without allow origin")
			}
		})
	}
}

func TestWithCORS_AllowsFromCSVList(t *testing.T) {
	h := withCORS(config.CORSConfig{AllowOrigin: "http://192.168.0.251:3000, http://cbs:3000"}, corsOK)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set("Origin", "http://cbs:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://cbs:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestWithCORS_BlocksUnknownOriginFromCSVList(t *testing.T) {
	h := withCORS(config.CORSConfig{AllowOrigin: "http://192.168.0.251:3000,http://cbs:3000", AllowCredentials: true}, corsOK)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	h(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("same-origin checks are the browser's job, got %d", w.Code)
	}
	for _, k := range []string{"Access-Control-Allow-Origin", "Access-Control-Allow-Credentials", "Access-Control-Expose-Headers"} {
		if got := w.Header().Get(k); got != "" {
			t.Fatalf("unexpected %s for blocked origin: %q", k, got)
		}
	}
}
