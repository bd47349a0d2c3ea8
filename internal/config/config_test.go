package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	require.NoError(t, os.Chdir(filepath.Join(dir, "a", "b")))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	unsetenv(t, "CONFIG_FILE", "PORT", "DB_DRIVER", "TOKEN_TTL", "MAX_UPLOAD_BYTES", "SUBMIT_RATE_PER_MIN")
	t.Setenv("MEMORY_STORE", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 10, cfg.SubmitRatePerMin)
	assert.True(t, cfg.MemoryStore)
}

func TestLoadReportsAllMissing(t *testing.T) {
	chdirTemp(t)
	unsetenv(t, "CONFIG_FILE")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MEMORY_STORE", "false")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoadFileOverlaidByEnv(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
database_url: postgres://file
jwt_secret: from-file
submit_rate_per_min: 3
token_ttl: 1h
`), 0o644))
	unsetenv(t, "DATABASE_URL", "JWT_SECRET", "SUBMIT_RATE_PER_MIN", "TOKEN_TTL", "DB_DRIVER")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("MEMORY_STORE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "postgres://file", cfg.DatabaseURL)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 3, cfg.SubmitRatePerMin)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestLoadBadConfigFile(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadTrustedProxies(t *testing.T) {
	chdirTemp(t)
	unsetenv(t, "CONFIG_FILE")
	t.Setenv("MEMORY_STORE", "true")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TRUSTED_PROXIES", " 10.1.2.3/8, 192.0.2.1 ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}, cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/99")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}
