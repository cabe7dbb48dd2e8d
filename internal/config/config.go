package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultDSN        = "host=db user=postgres password=1234 dbname=leads port=5432 sslmode=disable"
	defaultJWTSecret  = "dev-jwt-secret-change-me"
	defaultSessionKey = "super-secret-default-key"
)

type Config struct {
	Env         string
	Port        string
	DatabaseURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionKey      string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RedisAddr string

	SMTP SMTPConfig

	UploadDir      string
	AllowedOrigins []string

	AdminEmail    string
	AdminPassword string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPConfig) Enabled() bool { return s.Host != "" }

func (c Config) IsProduction() bool { return c.Env == EnvProduction }

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, defaults applied.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:                get("ENV", EnvDevelopment),
		Port:               get("PORT", "8080"),
		DatabaseURL:        get("DATABASE_URL", defaultDSN),
		JWTSecret:          get("JWT_SECRET", ""),
		SessionKey:         get("SESSION_KEY", ""),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  get("GOOGLE_REDIRECT_URL", ""),
		RedisAddr:          get("REDIS_ADDR", ""),
		UploadDir:          get("UPLOAD_DIR", "./static/uploads"),
		AdminEmail:         get("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:      get("ADMIN_PASSWORD", ""),
		SMTP: SMTPConfig{
			Host:     get("SMTP_HOST", ""),
			Username: get("SMTP_USERNAME", ""),
			Password: get("SMTP_PASSWORD", ""),
			From:     get("SMTP_FROM", "no-reply@example.com"),
		},
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("invalid ENV %q: want %s or %s", cfg.Env, EnvDevelopment, EnvProduction)
	}

	var err error
	if cfg.AccessTokenTTL, err = time.ParseDuration(get("ACCESS_TOKEN_TTL", "15m")); err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = time.ParseDuration(get("REFRESH_TOKEN_TTL", "168h")); err != nil {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if cfg.SMTP.Port, err = strconv.Atoi(get("SMTP_PORT", "587")); err != nil {
		return Config{}, fmt.Errorf("SMTP_PORT: %w", err)
	}

	if origins := get("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = defaultJWTSecret
		slog.Warn("JWT_SECRET not set, using development default")
	}
	if cfg.SessionKey == "" {
		if cfg.IsProduction() {
			return Config{}, errors.New("SESSION_KEY is required in production")
		}
		cfg.SessionKey = defaultSessionKey
		slog.Warn("SESSION_KEY not set, using development default")
	}

	return cfg, nil
}
