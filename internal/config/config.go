package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all server configuration, loaded from the environment.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
	Env            string
	SpawnInterval  time.Duration
}

func Default() *Config {
	return &Config{
		Port:          "3000",
		Env:           "production",
		SpawnInterval: 30 * time.Second,
	}
}

// Load reads configuration from environment variables on top of defaults.
func Load() *Config {
	cfg := Default()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("SPAWN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SpawnInterval = d
		}
	}
	return cfg
}
