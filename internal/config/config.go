package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ErrMissingJWTSecret 未配置签名密钥时拒绝启动
var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

type Config struct {
	Port           int
	DatabaseURL    string
	JWTSecret      string
	AccessTokenTTL time.Duration

	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration
	AICacheSize  int
	AICacheTTL   time.Duration

	GinMode   string
	LogLevel  string
	LogFormat string
}

// Load reads the .env file (if any) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading env vars from system")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           getenvInt("PORT", 8000),
		DatabaseURL:    getenv("DATABASE_URL", "sqlite://./parallel.db"),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AccessTokenTTL: time.Duration(getenvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:      time.Duration(getenvInt("AI_TIMEOUT_SECONDS", 20)) * time.Second,
		AICacheSize:    getenvInt("AI_CACHE_SIZE", 500),
		AICacheTTL:     time.Duration(getenvInt("AI_CACHE_TTL_MINUTES", 60)) * time.Minute,
		GinMode:        getenv("GIN_MODE", "release"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingJWTSecret
	}
	return cfg, nil
}

// AIEnabled reports whether an external model credential is configured.
func (c Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logrus.WithField("key", key).Warnf("invalid integer %q, using default %d", value, fallback)
		return fallback
	}
	return parsed
}
