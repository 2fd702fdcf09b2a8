package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRequestIDMiddleware_GeneratesID はIDが採番されてコンテキストとヘッダーに載ることを検証する。
func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var fromContext string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if fromContext == "" {
		t.Fatal("expected request ID in context")
	}
	if got := w.Header().Get(RequestIDHeader); got != fromContext {
		t.Errorf("response header = %q, context = %q", got, fromContext)
	}
}

// TestRequestIDMiddleware_PreservesClientID はクライアント指定のIDが引き継がれることを検証する。
func TestRequestIDMiddleware_PreservesClientID(t *testing.T) {
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromContext(r.Context()); got != "client-id-1" {
			t.Errorf("request ID = %q, want %q", got, "client-id-1")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
}

// TestRequestIDFromContext_Missing は未設定時に空文字列を返すことを検証する。
func TestRequestIDFromContext_Missing(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("request ID = %q, want empty", got)
	}
}
