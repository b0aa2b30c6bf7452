// Package config loads process settings from the environment, optionally
// seeded from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAppName         = "docker-multistage-demo"
	DefaultPort            = 8080
	DefaultShutdownTimeout = 10 * time.Second
	DefaultEnvFile         = ".env"
)

// Config holds the settings read at startup.
type Config struct {
	AppName         string
	Port            int
	ShutdownTimeout time.Duration
	LogLevel        string
	AllowedOrigins  []string
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Load reads the dotenv file named by ENV_FILE (default .env) and then the
// environment. A missing dotenv file is ignored; variables already set in the
// environment take precedence over the file.
func Load() (Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", path, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		AppName:         DefaultAppName,
		Port:            DefaultPort,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        strings.TrimSpace(getenv("LOG_LEVEL")),
	}

	if name := firstSet(getenv, "APP_NAME", "SPRING_APPLICATION_NAME"); name != "" {
		cfg.AppName = name
	}

	if raw := strings.TrimSpace(getenv("PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q: must be a number between 1 and 65535", raw)
		}
		cfg.Port = port
	}

	if raw := strings.TrimSpace(getenv("SHUTDOWN_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: must be positive", raw)
		}
		cfg.ShutdownTimeout = d
	}

	for origin := range strings.SplitSeq(getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg, nil
}

func firstSet(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
