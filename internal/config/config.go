package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-in-production"

type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level
	Timezone *time.Location

	DatabaseDriver string
	DatabaseDSN    string
	LocalDBPath    string

	JWTSecret string
	JWTExpiry time.Duration

	Estimation EstimationConfig
	Images     ImageConfig
}

// EstimationConfig selects and configures the nutrition estimation provider.
type EstimationConfig struct {
	Provider      string
	Timeout       time.Duration
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// ImageConfig enables S3 storage for meal photos when Bucket is set.
// Without it, photos are embedded in the meal as data URIs.
type ImageConfig struct {
	Bucket    string
	Region    string
	PublicURL string
}

func Load() Config {
	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
		Timezone: loadLocation(getEnv("TIMEZONE", "Local")),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "mysql"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/proteinpath"),
		LocalDBPath:    getEnv("LOCAL_DB_PATH", defaultLocalDBPath()),

		JWTSecret: getEnv("JWT_SECRET", devJWTSecret),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),

		Estimation: EstimationConfig{
			Provider:      getEnv("ESTIMATION_PROVIDER", "gemini"),
			Timeout:       getEnvDuration("ESTIMATION_TIMEOUT", 60*time.Second),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		},

		Images: ImageConfig{
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", getEnv("AWS_REGION", "")),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
		},
	}

	if cfg.DatabaseDriver == "sqlite" && os.Getenv("DATABASE_DSN") == "" {
		cfg.DatabaseDSN = cfg.LocalDBPath
	}

	if cfg.Env == "production" && cfg.JWTSecret == devJWTSecret {
		slog.Error("JWT_SECRET must be set in production environment")
		os.Exit(1)
	}

	return cfg
}

// Logger builds the process logger: text in development, JSON otherwise.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.Env == "development" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring malformed integer setting", "key", key, "value", v)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare integers are seconds.
		if secs := getEnvInt(key, -1); secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown TIMEZONE, using local time", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

func defaultLocalDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "protein-path.db"
	}
	return dir + string(os.PathSeparator) + "protein-path" + string(os.PathSeparator) + "local.db"
}
