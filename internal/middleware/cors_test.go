package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func execCORS(t *testing.T, origin, method string, next http.HandlerFunc) *http.Response {
	t.Helper()
	mw := NewCORSMiddleware(origin)
	req := httptest.NewRequest(method, "/api/favorites", nil)
	w := httptest.NewRecorder()
	mw(next).ServeHTTP(w, req)
	return w.Result()
}

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	resp := execCORS(t, "http://localhost:19006", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	tests := []struct {
		header string
		want   string
	}{
		{"Access-Control-Allow-Origin", "http://localhost:19006"},
		{"Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS"},
		{"Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token"},
		{"Access-Control-Allow-Credentials", "true"},
		{"Access-Control-Max-Age", "86400"},
	}

	for _, tt := range tests {
		if got := resp.Header.Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestCORSMiddleware_OptionsRequest_Returns204(t *testing.T) {
	handlerCalled := false
	resp := execCORS(t, "http://localhost:19006", http.MethodOptions, func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if handlerCalled {
		t.Error("next handler should not be called for OPTIONS preflight")
	}

	// プリフライト応答にもCORSヘッダーが付与されること
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:19006" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:19006")
	}
}

func TestCORSMiddleware_POSTRequest_PassesThroughWithHeaders(t *testing.T) {
	handlerCalled := false
	resp := execCORS(t, "https://app.example.com", http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if !handlerCalled {
		t.Error("next handler should be called for POST request")
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://app.example.com")
	}
}
