package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devSessionSecret = "tunishield-development-secret"
)

type Config struct {
	Port           string
	BaseURL        string
	Environment    string
	DatabaseURL    string
	RedisURL       string
	SessionSecret  string
	SessionTTL     time.Duration
	OTPTTL         time.Duration
	OTPMaxAttempts int
	AuditMaxLen    int64
	CORSOrigins    []string
	TrustedProxies []string
	Log            LogConfig
	Email          EmailConfig
	Google         OAuthProvider
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

func (c Config) Development() bool {
	return c.Environment == EnvDevelopment
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first without overriding variables already set.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	cfg := Config{
		Port:           getenvDefault("PORT", "8080"),
		BaseURL:        strings.TrimRight(firstNonEmpty(os.Getenv("APP_BASE_URL"), os.Getenv("NEXT_PUBLIC_APP_URL"), "http://localhost:3000"), "/"),
		Environment:    strings.ToLower(firstNonEmpty(os.Getenv("APP_ENV"), os.Getenv("NODE_ENV"), EnvProduction)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getenvDefault("REDIS_URL", "redis://localhost:6379"),
		SessionSecret:  clean(firstNonEmpty(os.Getenv("SESSION_SECRET"), os.Getenv("JWT_SECRET"))),
		SessionTTL:     parseDuration(os.Getenv("SESSION_TTL"), 7*24*time.Hour),
		OTPTTL:         parseDuration(os.Getenv("OTP_TTL"), 10*time.Minute),
		OTPMaxAttempts: parseInt(os.Getenv("OTP_MAX_ATTEMPTS"), 5),
		AuditMaxLen:    int64(parseInt(os.Getenv("AUDIT_MAX_LEN"), 1000)),
		CORSOrigins:    parseList(os.Getenv("CORS_ORIGINS")),
		TrustedProxies: parseList(os.Getenv("TRUSTED_PROXIES")),
	}

	cfg.Log = LogConfig{
		Level:      getenvDefault("LOG_LEVEL", "info"),
		Format:     getenvDefault("LOG_FORMAT", "json"),
		File:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  parseInt(os.Getenv("LOG_MAX_SIZE_MB"), 10),
		MaxBackups: parseInt(os.Getenv("LOG_MAX_BACKUPS"), 3),
	}

	cfg.Email = EmailConfig{
		Host:     clean(getenvDefault("SMTP_HOST", "smtp.gmail.com")),
		Port:     parseInt(clean(os.Getenv("SMTP_PORT")), 587),
		Username: clean(os.Getenv("SMTP_EMAIL")),
		Password: clean(os.Getenv("SMTP_PASSWORD")),
		From:     clean(os.Getenv("SMTP_FROM")),
		Secure:   parseBool(os.Getenv("SMTP_SECURE")),
	}
	if cfg.Email.From == "" && cfg.Email.Username != "" {
		cfg.Email.From = fmt.Sprintf("\"TuniShield\" <%s>", cfg.Email.Username)
	}
	if cfg.Email.Username == "" || cfg.Email.Password == "" {
		cfg.Email.Host = ""
	}

	cfg.Google = OAuthProvider{
		ClientID:     clean(os.Getenv("GOOGLE_CLIENT_ID")),
		ClientSecret: clean(os.Getenv("GOOGLE_CLIENT_SECRET")),
		RedirectURL:  getenvDefault("GOOGLE_REDIRECT_URL", cfg.BaseURL+"/api/auth/google/callback"),
	}

	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.BaseURL}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		if !cfg.Development() {
			return Config{}, fmt.Errorf("SESSION_SECRET is required outside development")
		}
		cfg.SessionSecret = devSessionSecret
	}
	if cfg.OTPMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("OTP_MAX_ATTEMPTS must be > 0")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

func parseInt(val string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return n
}

func parseDuration(val string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
