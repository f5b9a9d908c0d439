package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DAILY_EXERCISE_LIMIT", "")
	t.Setenv("OTP_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DailyExerciseLimit != 500 {
		t.Errorf("DailyExerciseLimit = %d, want 500", cfg.DailyExerciseLimit)
	}
	if cfg.OTPTTL != 10*time.Minute {
		t.Errorf("OTPTTL = %v, want 10m", cfg.OTPTTL)
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts = %d, want 3", cfg.OTPMaxAttempts)
	}
	if cfg.DefaultUnlockQuota != 10 {
		t.Errorf("DefaultUnlockQuota = %d, want 10", cfg.DefaultUnlockQuota)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	content := "DAILY_EXERCISE_LIMIT=50\nOTP_TTL=5m\nCORS_ALLOWED_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env fixture: %v", err)
	}

	t.Setenv("ENV_FILE", envPath)
	// t.Setenv registers cleanup so values loaded from the file do not leak.
	t.Setenv("DAILY_EXERCISE_LIMIT", "")
	t.Setenv("OTP_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	os.Unsetenv("DAILY_EXERCISE_LIMIT")
	os.Unsetenv("OTP_TTL")
	os.Unsetenv("CORS_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DailyExerciseLimit != 50 {
		t.Errorf("DailyExerciseLimit = %d, want 50", cfg.DailyExerciseLimit)
	}
	if cfg.OTPTTL != 5*time.Minute {
		t.Errorf("OTPTTL = %v, want 5m", cfg.OTPTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsMalformedEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "broken.env")
	if err := os.WriteFile(envPath, []byte("OTP_TTL='5m\n"), 0o600); err != nil {
		t.Fatalf("failed to write env fixture: %v", err)
	}
	t.Setenv("ENV_FILE", envPath)

	if _, err := Load(); err == nil {
		t.Error("expected an error for an unparseable env file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "complete config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: true,
		},
		{
			name:    "missing unlock secret",
			mutate:  func(c *Config) { c.UnlockCodeSecret = "" },
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.QuotaTimezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "zero limit",
			mutate:  func(c *Config) { c.DailyExerciseLimit = 0 },
			wantErr: true,
		},
		{
			name:    "zero otp ttl",
			mutate:  func(c *Config) { c.OTPTTL = 0 },
			wantErr: true,
		},
		{
			name:    "negative email timeout",
			mutate:  func(c *Config) { c.EmailTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "missing sender",
			mutate:  func(c *Config) { c.FromEmail = "" },
			wantErr: true,
		},
		{
			name: "missing sender in debug mode",
			mutate: func(c *Config) {
				c.FromEmail = ""
				c.EmailDebug = true
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				JWTSecret:          "jwt",
				UnlockCodeSecret:   "unlock",
				DailyExerciseLimit: 500,
				OTPMaxAttempts:     3,
				OTPTTL:             10 * time.Minute,
				EmailTimeout:       10 * time.Second,
				FromEmail:          "noreply@hoctap.vn",
				QuotaTimezone:      "UTC",
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
