package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/userstore/internal/metrics"
	"github.com/hitoshi/userstore/internal/middleware"
	"github.com/hitoshi/userstore/internal/model"
	"github.com/hitoshi/userstore/internal/security"
)

// fakePinger はヘルスチェック用のPingerスタブ。
type fakePinger struct {
	err error
}

func (p *fakePinger) PingContext(ctx context.Context) error { return p.err }

// newFullRouter は全ミドルウェアを構成したルーターとレートリミッターを返す。
func newFullRouter(t *testing.T, pingErr error) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     1000,
		GeneralBurst:    1000,
		CleanupInterval: time.Hour,
		IdleExpiry:      time.Hour,
	})
	t.Cleanup(rl.Stop)

	repo := &mockUserRepo{
		listFn: func(ctx context.Context, includeDeleted bool) ([]model.User, error) {
			return nil, nil
		},
	}

	return NewRouter(&RouterDeps{
		Logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		UserRepo:    repo,
		Sanitizer:   security.NewInputSanitizer(),
		RateLimiter: rl,
		Collector:   collector,
		Gatherer:    reg,
		DB:          &fakePinger{err: pingErr},
	})
}

// TestRouter_Health_ReturnsOK はDB接続可能時に/healthが200を返すことを検証する。
func TestRouter_Health_ReturnsOK(t *testing.T) {
	router := newFullRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

// TestRouter_Health_ReturnsUnavailable はDB接続不能時に/healthが503を返すことを検証する。
func TestRouter_Health_ReturnsUnavailable(t *testing.T) {
	router := newFullRouter(t, errors.New("接続エラー"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

// TestRouter_Metrics_Exposed は/metricsがPrometheus形式で応答することを検証する。
func TestRouter_Metrics_Exposed(t *testing.T) {
	router := newFullRouter(t, nil)

	// メトリクスを記録させるために1リクエスト実行
	warmup := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	warmup.RemoteAddr = "192.0.2.1:1000"
	router.ServeHTTP(httptest.NewRecorder(), warmup)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "userstore_http_status_total") {
		t.Error("expected userstore_http_status_total in metrics output")
	}
}

// TestRouter_SetsRequestIDAndSecurityHeaders はミドルウェアチェーンが適用されることを検証する。
func TestRouter_SetsRequestIDAndSecurityHeaders(t *testing.T) {
	router := newFullRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.RemoteAddr = "192.0.2.1:1000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected X-Request-Id header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

// TestRouter_RateLimitAppliesToAPIOnly はレート制限が/api配下のみに効くことを検証する。
func TestRouter_RateLimitAppliesToAPIOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// バースト1でレートほぼ0
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     0.001,
		GeneralBurst:    1,
		CleanupInterval: time.Hour,
		IdleExpiry:      time.Hour,
	})
	defer rl.Stop()

	repo := &mockUserRepo{
		listFn: func(ctx context.Context, includeDeleted bool) ([]model.User, error) {
			return nil, nil
		},
	}
	router := NewRouter(&RouterDeps{
		Logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		UserRepo:    repo,
		Sanitizer:   security.NewInputSanitizer(),
		RateLimiter: rl,
		Collector:   collector,
		Gatherer:    reg,
		DB:          &fakePinger{},
	})

	first := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	first.RemoteAddr = "192.0.2.1:1000"
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, first)
	if w1.Code != http.StatusOK {
		t.Fatalf("first API request: status = %d, want 200", w1.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	second.RemoteAddr = "192.0.2.1:1000"
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, second)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second API request: status = %d, want 429", w2.Code)
	}

	// /healthはレート制限の対象外
	health := httptest.NewRequest(http.MethodGet, "/health", nil)
	health.RemoteAddr = "192.0.2.1:1000"
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, health)
	if w3.Code != http.StatusOK {
		t.Errorf("health request: status = %d, want 200", w3.Code)
	}
}
