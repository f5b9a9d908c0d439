package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	JWTSecret        string
	UnlockCodeSecret string
	CronSecret       string

	DailyExerciseLimit  int
	DefaultUnlockQuota  int
	QuotaTimezone       string
	TokenResetScheduler bool

	OTPTTL            time.Duration
	OTPMaxAttempts    int
	OTPResendCooldown time.Duration
	OTPMaxPerWindow   int
	OTPWindow         time.Duration

	RedisAddr     string
	RedisPassword string

	AWSRegion    string
	FromEmail    string
	FromName     string
	AppBaseURL   string
	EmailDebug   bool
	EmailTimeout time.Duration

	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file (or the file named by ENV_FILE) is loaded first when present;
// a file that exists but cannot be parsed is an error.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	return &Config{
		ServerPort:   getEnv("PORT", "8080"),
		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./hoctap.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		UnlockCodeSecret: getEnv("UNLOCK_CODE_SECRET", ""),
		CronSecret:       getEnv("CRON_SECRET", ""),

		// 500 is documented upstream as "50 exercises/day" at 10 tokens each.
		// Confirm with product before changing.
		DailyExerciseLimit:  getEnvInt("DAILY_EXERCISE_LIMIT", 500),
		DefaultUnlockQuota:  getEnvInt("DEFAULT_UNLOCK_QUOTA", 10),
		QuotaTimezone:       getEnv("QUOTA_TIMEZONE", "Asia/Ho_Chi_Minh"),
		TokenResetScheduler: getEnvBool("TOKEN_RESET_SCHEDULER", false),

		OTPTTL:            getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts:    getEnvInt("OTP_MAX_ATTEMPTS", 3),
		OTPResendCooldown: getEnvDuration("OTP_RESEND_COOLDOWN", time.Minute),
		OTPMaxPerWindow:   getEnvInt("OTP_MAX_PER_WINDOW", 5),
		OTPWindow:         getEnvDuration("OTP_WINDOW", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AWSRegion:    getEnv("AWS_REGION", "ap-southeast-1"),
		FromEmail:    getEnv("SES_FROM_EMAIL", ""),
		FromName:     getEnv("SES_FROM_NAME", "Học Tập"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailDebug:   getEnvBool("EMAIL_DEBUG", false),
		EmailTimeout: getEnvDuration("EMAIL_TIMEOUT", 10*time.Second),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRequests:  getEnvInt("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}, nil
}

// Validate reports configuration that would make the server unusable
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.UnlockCodeSecret == "" {
		errs = append(errs, errors.New("UNLOCK_CODE_SECRET is required"))
	}
	if c.DailyExerciseLimit <= 0 {
		errs = append(errs, fmt.Errorf("DAILY_EXERCISE_LIMIT must be positive, got %d", c.DailyExerciseLimit))
	}
	if c.OTPMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("OTP_MAX_ATTEMPTS must be positive, got %d", c.OTPMaxAttempts))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, fmt.Errorf("OTP_TTL must be positive, got %s", c.OTPTTL))
	}
	if c.EmailTimeout <= 0 {
		errs = append(errs, fmt.Errorf("EMAIL_TIMEOUT must be positive, got %s", c.EmailTimeout))
	}
	// Without a sender OTP mail is dropped; only allowed when codes are logged for development.
	if c.FromEmail == "" && !c.EmailDebug {
		errs = append(errs, errors.New("SES_FROM_EMAIL is required unless EMAIL_DEBUG=true"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves QuotaTimezone, the zone that decides where a quota day begins
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTA_TIMEZONE %q: %w", c.QuotaTimezone, err)
	}
	return loc, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
