package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"memorial-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("DefaultsWithSecretFromEnv", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("ENV", "unit")
		t.Setenv("JWT_SECRET", "test-secret")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, "/api", cfg.Server.BasePath)
		assert.Equal(t, 24, cfg.Auth.TokenTTLHours)
		assert.Equal(t, "disk", cfg.Storage.Driver)
		assert.Equal(t, "none", cfg.Events.Driver)
		assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("ENV", "unit")
		t.Setenv("JWT_SECRET", "")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})

	t.Run("FileAndEnvOverride", func(t *testing.T) {
		dir := chdirTemp(t)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
		yaml := []byte(`
env: unit
server:
  port: "8088"
  base_path: /v1
auth:
  jwt_secret: from-file
events:
  driver: nats
  nats:
    url: nats://localhost:4222
`)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.unit.yaml"), yaml, 0o644))
		t.Setenv("ENV", "unit")
		t.Setenv("PORT", "9099")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "9099", cfg.Server.Port)
		assert.Equal(t, "/v1", cfg.Server.BasePath)
		assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
		assert.Equal(t, "nats", cfg.Events.Driver)
		assert.Equal(t, "nats://localhost:4222", cfg.Events.NATS.URL)
	})
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Auth:    config.AuthConfig{JWTSecret: "s", TokenTTLHours: 24, Revoker: "memory"},
			Storage: config.StorageConfig{Driver: "disk"},
			Events:  config.EventsConfig{Driver: "none"},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Storage.Driver = "s3"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Events.Driver = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Auth.Revoker = "disk"
	assert.Error(t, cfg.Validate())
}
