package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Empty values read as unset, so pinning every key Load consults keeps
// these tests independent of whatever the host environment carries.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "ALLOWED_ORIGINS", "APP_ENV", "SPAWN_INTERVAL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.SpawnInterval)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SPAWN_INTERVAL", "5s")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.SpawnInterval)
}

func TestLoad_IgnoresBadSpawnInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPAWN_INTERVAL", "soon")
	assert.Equal(t, 30*time.Second, Load().SpawnInterval)
}
