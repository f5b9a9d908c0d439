package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hoctap/internal/database/dbtest"
	"hoctap/internal/i18n"
	"hoctap/internal/models"
	"hoctap/internal/repository"
	"hoctap/internal/security"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

const (
	testJWTSecret  = "test-jwt-secret-0123456789abcdef"
	testCronSecret = "test-cron-secret"
)

type captureMailer struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (m *captureMailer) SendOTPEmail(ctx context.Context, toEmail, code string, purpose models.Purpose, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes = append(m.codes, code)
	return nil
}

func (m *captureMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[len(m.codes)-1]
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	verifier *security.TokenVerifier
	mailer   *captureMailer
	seed     func(u dbtest.User) string
}

func newTestServer(t *testing.T, limit int) *testServer {
	t.Helper()

	db := dbtest.Open(t)
	users := repository.NewUserRepository(db)

	catalog, err := i18n.New()
	if err != nil {
		t.Fatalf("i18n.New failed: %v", err)
	}
	v, err := validation.New(catalog.Universal())
	if err != nil {
		t.Fatalf("validation.New failed: %v", err)
	}
	hasher, err := security.NewCodeHasher("test-unlock-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("NewCodeHasher failed: %v", err)
	}
	loc, _ := time.LoadLocation("Asia/Ho_Chi_Minh")

	mailer := &captureMailer{}
	verifier := security.NewTokenVerifier(testJWTSecret)
	otps := service.NewOTPService(repository.NewOTPRepository(db), mailer, nil,
		service.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, EmailTimeout: time.Second})
	tokens := service.NewTokenService(users)
	unlocks := service.NewUnlockService(users, hasher)

	handler := NewRouter(RouterConfig{
		Middleware: NewMiddleware(verifier, users, catalog, testCronSecret),
		Usage:      NewUsageHandler(service.NewUsageService(repository.NewUsageRepository(db), users, limit, loc), v),
		Tokens:     NewTokenHandler(tokens, v),
		OTP:        NewOTPHandler(otps, v),
		Unlock:     NewUnlockHandler(unlocks, v),
		Cron:       NewCronHandler(tokens, unlocks),
		DB:         db,
	})

	return &testServer{
		t:        t,
		handler:  handler,
		verifier: verifier,
		mailer:   mailer,
		seed:     func(u dbtest.User) string { return dbtest.InsertUser(t, db, u) },
	}
}

func (s *testServer) token(userID string) string {
	s.t.Helper()
	tok, err := s.verifier.Sign(userID, time.Hour)
	if err != nil {
		s.t.Fatalf("Sign failed: %v", err)
	}
	return tok
}

// do sends a request as userID; an empty userID sends no credentials
func (s *testServer) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]any {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
	return decode(t, rec)
}
