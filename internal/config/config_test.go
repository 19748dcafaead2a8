package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "minio", cfg.Storage.Driver)
	assert.Equal(t, int64(16<<20), cfg.Storage.MaxUploadSize)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.True(t, cfg.Jobs.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("STORAGE_DRIVER", "filesystem")
	t.Setenv("REDIS_CACHE_TTL", "30s")
	t.Setenv("JOBS_ENABLED", "false")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "filesystem", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Jobs.Enabled)
	assert.Equal(t, 1025, cfg.SMTP.Port)
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "DB_DRIVER")

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_PASSWORD", "")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")

	t.Setenv("DB_PASSWORD", "pw")
	_, err = Load()
	assert.ErrorContains(t, err, "MINIO_SECRET_KEY")

	t.Setenv("MINIO_SECRET_KEY", "real-secret")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_RETRIES", "0")

	cfg, err := LoadDatabaseConfig()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "elpa_dev", cfg.DBName)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestLoadDatabaseConfig_Invalid(t *testing.T) {
	t.Setenv("DB_PORT", "abc")
	t.Setenv("DB_RETRY_DELAY", "soon")

	_, err := LoadDatabaseConfig()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DB_PORT")
	assert.ErrorContains(t, err, "DB_RETRY_DELAY")

	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_RETRY_DELAY", "1s")
	t.Setenv("DB_MIN_CONNECTIONS", "50")
	_, err = LoadDatabaseConfig()
	assert.ErrorContains(t, err, "DB_MIN_CONNECTIONS")
}
