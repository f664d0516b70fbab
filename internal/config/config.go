// Package config reads the composer configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-driven setting.
type Config struct {
	Port              string
	RenderURL         string
	RenderTimeout     time.Duration
	RenderConcurrency int
	FormatsFile       string
	LogosDir          string
	FontsDir          string
	LogLevel          string
	CORSOrigins       []string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// PublishEnabled reports whether archives are uploaded to MinIO.
func (c Config) PublishEnabled() bool {
	return c.MinioEndpoint != ""
}

// Load reads the environment, falling back to defaults.
func Load() Config {
	return Config{
		Port:              getenv("COMPOSER_PORT", "8888"),
		RenderURL:         getenv("RENDER_URL", "http://localhost:8000/api/v1"),
		RenderTimeout:     time.Duration(getenvInt("RENDER_TIMEOUT_SECONDS", 60)) * time.Second,
		RenderConcurrency: getenvInt("RENDER_CONCURRENCY", 8),
		FormatsFile:       os.Getenv("FORMATS_FILE"),
		LogosDir:          getenv("LOGOS_DIR", "static/logos"),
		FontsDir:          getenv("FONTS_DIR", "static/fonts"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getenv("MINIO_BUCKET", "composer-archives"),
		MinioUseSSL:       getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", v)
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Ignoring invalid boolean setting", "key", key, "value", v)
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
