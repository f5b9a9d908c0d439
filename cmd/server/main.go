package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"hoctap/internal/config"
	"hoctap/internal/database"
	"hoctap/internal/handlers"
	"hoctap/internal/i18n"
	"hoctap/internal/logger"
	"hoctap/internal/repository"
	"hoctap/internal/security"
	"hoctap/internal/service"
	"hoctap/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Configure(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Fatalf("Failed to configure logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	logger.Infof("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	logger.Infof("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	otpRepo := repository.NewOTPRepository(db)

	// Initialize services
	hasher, err := security.NewCodeHasher(cfg.UnlockCodeSecret)
	if err != nil {
		logger.Fatalf("Failed to derive unlock-code key: %v", err)
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.FromEmail, cfg.FromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		logger.Fatalf("Failed to initialize email service: %v", err)
	}
	if !emailService.IsEnabled() {
		logger.Warnf("SES_FROM_EMAIL is not set: OTP codes are only logged, nothing is delivered")
	}

	var issueLimiter service.IssueLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		issueLimiter = security.NewRedisIssueLimiter(rdb, security.IssueLimits{
			Cooldown:    cfg.OTPResendCooldown,
			MaxInWindow: cfg.OTPMaxPerWindow,
			Window:      cfg.OTPWindow,
		})
		logger.Infof("OTP issue limiter enabled (redis: %s)", cfg.RedisAddr)
	} else {
		logger.Warnf("REDIS_ADDR not set: OTP issuance is only limited per IP")
	}

	usageService := service.NewUsageService(usageRepo, userRepo, cfg.DailyExerciseLimit, loc)
	tokenService := service.NewTokenService(userRepo)
	otpService := service.NewOTPService(otpRepo, emailService, issueLimiter, service.OTPConfig{
		TTL:          cfg.OTPTTL,
		MaxAttempts:  cfg.OTPMaxAttempts,
		EmailTimeout: cfg.EmailTimeout,
	})
	unlockService := service.NewUnlockService(userRepo, hasher)

	catalog, err := i18n.New()
	if err != nil {
		logger.Fatalf("Failed to load messages: %v", err)
	}
	validator, err := validation.New(catalog.Universal())
	if err != nil {
		logger.Fatalf("Failed to initialize validator: %v", err)
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(security.NewTokenVerifier(cfg.JWTSecret), userRepo, catalog, cfg.CronSecret)
	router := handlers.NewRouter(handlers.RouterConfig{
		Middleware:     middleware,
		Usage:          handlers.NewUsageHandler(usageService, validator),
		Tokens:         handlers.NewTokenHandler(tokenService, validator),
		OTP:            handlers.NewOTPHandler(otpService, validator),
		Unlock:         handlers.NewUnlockHandler(unlockService, validator),
		Cron:           handlers.NewCronHandler(tokenService, unlockService),
		DB:             db,
		RateLimiter:    security.NewRateLimiter(ctx, cfg.RateLimitRequests, cfg.RateLimitWindow),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	if cfg.TokenResetScheduler {
		scheduler := service.NewResetScheduler(tokenService, unlockService, otpService, loc)
		go scheduler.Start(ctx, service.DefaultResetCheckInterval)
		logger.Infof("In-process daily reset enabled (timezone: %s)", cfg.QuotaTimezone)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Infof("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	logger.Infof("Server stopped")
}
