package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, SourceRemote, cfg.Catalog.Source)
	assert.Equal(t, 10*time.Second, cfg.Catalog.APITimeout)
	assert.Equal(t, "en", cfg.Catalog.DefaultLocale)
	assert.Equal(t, 1000000.0, cfg.Catalog.PriceCeiling)
	assert.True(t, cfg.Catalog.AutoApplySort)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.FacetCacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 120, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_SOURCE", "Postgres")
	t.Setenv("CATALOG_AUTO_APPLY_SORT", "false")
	t.Setenv("CATALOG_DEFAULT_LOCALE", "ru")
	t.Setenv("SESSION_IDLE_MINUTES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example, https://admin.example ,")
	t.Setenv("REDIS_HOST", "")

	cfg := Load()

	assert.Equal(t, SourcePostgres, cfg.Catalog.Source)
	assert.False(t, cfg.Catalog.AutoApplySort)
	assert.Equal(t, "ru", cfg.Catalog.DefaultLocale)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=9090\nCATALOG_API_URL=http://catalog:8081\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("CATALOG_API_URL")
	})

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://catalog:8081", cfg.Catalog.APIURL)
}
