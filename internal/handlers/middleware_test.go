package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"hoctap/internal/database/dbtest"
	"hoctap/internal/logger"
	"hoctap/internal/security"
)

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t, 500)
	userID := s.seed(dbtest.User{})
	expired, _ := s.verifier.Sign(userID, -time.Hour)
	foreign, _ := security.NewTokenVerifier("some-other-secret").Sign(userID, time.Hour)
	ghost, _ := s.verifier.Sign("ghost", time.Hour)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "no header", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + foreign, status: http.StatusUnauthorized},
		{name: "deleted user", header: "Bearer " + ghost, status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + s.token(userID), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/daily-limit", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			expectStatus(t, rec, tt.status)
		})
	}
}

func TestLocalizedErrors(t *testing.T) {
	s := newTestServer(t, 500)

	tests := []struct {
		lang string
		want string
	}{
		{lang: "", want: "Bạn cần đăng nhập"},
		{lang: "en-US,en;q=0.9", want: "Authentication required"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/token?userId=x", nil)
			req.Header.Set("Accept-Language", tt.lang)
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			body := expectStatus(t, rec, http.StatusUnauthorized)
			if msg, _ := body["error"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestCronRoutes(t *testing.T) {
	s := newTestServer(t, 500)
	userID := s.seed(dbtest.User{TokensUsed: 300, UnlocksUsed: 3})

	cron := func(path, secret string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if secret != "" {
			req.Header.Set("Authorization", "Bearer "+secret)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	expectStatus(t, cron("/api/cron/reset-tokens", ""), http.StatusUnauthorized)
	expectStatus(t, cron("/api/cron/reset-tokens", "guess"), http.StatusUnauthorized)
	// a user session is not a cron credential
	expectStatus(t, cron("/api/cron/reset-tokens", s.token(userID)), http.StatusUnauthorized)

	body := expectStatus(t, cron("/api/cron/reset-tokens", testCronSecret), http.StatusOK)
	if body["updated"] != float64(1) {
		t.Errorf("reset-tokens updated = %v", body["updated"])
	}
	expectStatus(t, cron("/api/cron/reset-unlocks", testCronSecret), http.StatusOK)

	info := expectStatus(t, s.do(http.MethodGet, "/api/token?userId="+userID, userID, nil), http.StatusOK)
	if info["used"] != float64(0) {
		t.Errorf("tokens used after cron = %v", info["used"])
	}
	unlock := expectStatus(t, s.do(http.MethodGet, "/api/unlock-code?userId="+userID, userID, nil), http.StatusOK)
	if unlock["unlocksUsed"] != float64(0) {
		t.Errorf("unlocks used after cron = %v", unlock["unlocksUsed"])
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := security.NewRateLimiter(ctx, 2, time.Minute)

	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/unlock-code", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, statuses[i], want[i])
		}
	}
}

func TestLoggingRecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer logger.Replace(zap.New(core))()

	s := newTestServer(t, 500)
	s.do(http.MethodGet, "/api/token?userId=abc", "", nil)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/token" || fields["status"] != int64(http.StatusUnauthorized) {
		t.Errorf("logged fields = %v", fields)
	}
}

type downDB struct{}

func (downDB) PingContext(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 500)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusOK)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hoctap_http_request_duration_seconds") {
		t.Errorf("metrics endpoint status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	health(downDB{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	expectStatus(t, rec, http.StatusServiceUnavailable)
}
