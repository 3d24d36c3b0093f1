package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 5*time.Minute, cfg.QRTTL)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvParsing(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_backend: memory\nqr_ttl: 2m\nhttp_port: \"9000\"\n"), 0o600))

	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 2*time.Minute, cfg.QRTTL)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "secret", cfg.JWTSigningKey)
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := App{JWTSigningKey: "k", StoreBackend: "sqlite", QueueBackend: "memory"}
	assert.Error(t, cfg.Validate())

	cfg.StoreBackend = "memory"
	cfg.QueueBackend = "kafka"
	assert.Error(t, cfg.Validate())

	cfg.QueueBackend = "redis"
	assert.NoError(t, cfg.Validate())
}
