package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "nccrd", cfg.Database.Schema)
	assert.Equal(t, "nccrd-api", cfg.JWT.Issuer)
	assert.Equal(t, 12*time.Hour, cfg.Regions.CacheTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxBytes)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_SCHEMA", "registry")
	t.Setenv("ENABLE_REGION_CACHE", "true")
	t.Setenv("REGION_CACHE_TTL", "not-a-duration")
	t.Setenv("JWT_EXPIRATION", "90m")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.org, ,https://b.example.org ")
	t.Setenv("UPLOAD_MAX_BYTES", "-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "registry", cfg.Database.Schema)
	assert.True(t, cfg.Regions.CacheEnabled)
	assert.Equal(t, 12*time.Hour, cfg.Regions.CacheTTL)
	assert.Equal(t, 90*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxBytes)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
