package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	ut "github.com/go-playground/universal-translator"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hoctap/internal/i18n"
	"hoctap/internal/security"
)

var defaultTranslator ut.Translator = func() ut.Translator {
	catalog, err := i18n.New()
	if err != nil {
		panic(err)
	}
	return catalog.Translator("")
}()

// Pinger reports whether the store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig carries everything NewRouter mounts
type RouterConfig struct {
	Middleware     *Middleware
	Usage          *UsageHandler
	Tokens         *TokenHandler
	OTP            *OTPHandler
	Unlock         *UnlockHandler
	Cron           *CronHandler
	DB             Pinger
	RateLimiter    *security.RateLimiter
	AllowedOrigins []string
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(cfg.Middleware.Localize)

	r.Get("/healthz", health(cfg.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Route("/cron", func(cr chi.Router) {
			cr.Use(cfg.Middleware.RequireCron)
			cr.Get("/reset-tokens", cfg.Cron.ResetTokens)
			cr.Get("/reset-unlocks", cfg.Cron.ResetUnlocks)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(cfg.Middleware.RequireAuth)

			pr.Get("/daily-limit", cfg.Usage.GetDailyLimit)
			pr.Post("/daily-limit", cfg.Usage.RecordUsage)

			pr.Get("/token", cfg.Tokens.GetTokenInfo)
			pr.Post("/token", cfg.Tokens.HandleAction)

			pr.Get("/unlock-code", cfg.Unlock.GetUnlockInfo)

			pr.Group(func(limited chi.Router) {
				if cfg.RateLimiter != nil {
					limited.Use(RateLimit(cfg.RateLimiter))
				}
				limited.Post("/unlock-code", cfg.Unlock.HandleAction)
				limited.Post("/auth/send-reset-otp", cfg.OTP.SendOTP)
				limited.Post("/auth/verify-reset-otp", cfg.OTP.VerifyOTP)
			})
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, "database unavailable", "Health check failed", err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	}
}
