package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ut "github.com/go-playground/universal-translator"
	"go.uber.org/zap"

	"hoctap/internal/i18n"
	"hoctap/internal/logger"
	"hoctap/internal/metrics"
	"hoctap/internal/models"
	"hoctap/internal/repository"
	"hoctap/internal/security"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	verifier   *security.TokenVerifier
	users      *repository.UserRepository
	catalog    *i18n.Catalog
	cronSecret string
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(verifier *security.TokenVerifier, users *repository.UserRepository, catalog *i18n.Catalog, cronSecret string) *Middleware {
	return &Middleware{
		verifier:   verifier,
		users:      users,
		catalog:    catalog,
		cronSecret: cronSecret,
	}
}

// Localize picks the response language from Accept-Language
func (m *Middleware) Localize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trans := m.catalog.Translator(r.Header.Get("Accept-Language"))
		ctx := context.WithValue(r.Context(), TranslatorContextKey, trans)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth is middleware that requires a valid bearer token for a known user
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unauthorized := func() {
			respondWithError(w, http.StatusUnauthorized, i18n.T(translator(r), i18n.MsgUnauthorized), "", nil)
		}

		token := security.BearerToken(r)
		if token == "" {
			unauthorized()
			return
		}
		userID, err := m.verifier.Verify(token)
		if err != nil {
			unauthorized()
			return
		}

		user, err := m.users.GetUserByID(r.Context(), userID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, i18n.T(translator(r), i18n.MsgInternal), "Error loading authenticated user", err)
			return
		}
		if user == nil {
			unauthorized()
			return
		}

		// Add user to context
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCron admits requests carrying the cron shared secret as a bearer token
func (m *Middleware) RequireCron(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := security.BearerToken(r)
		if m.cronSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(m.cronSecret)) != 1 {
			respondWithError(w, http.StatusUnauthorized, i18n.T(translator(r), i18n.MsgUnauthorized), "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects clients that exceed limiter's per-IP budget
func RateLimit(limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(security.GetClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				respondWithError(w, http.StatusTooManyRequests, i18n.T(translator(r), i18n.MsgRateLimited), "", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Logging middleware logs HTTP requests and records their latency
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Call next handler
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(elapsed.Seconds())

		logger.L().Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
		)
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// translator returns the request's translator, or the default locale's
// when Localize did not run
func translator(r *http.Request) ut.Translator {
	if trans, ok := r.Context().Value(TranslatorContextKey).(ut.Translator); ok {
		return trans
	}
	return defaultTranslator
}
