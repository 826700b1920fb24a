package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 60*time.Second, cfg.JobsCacheTTL)
	assert.EqualValues(t, 100, cfg.JobsCacheScanBatch)
	assert.Equal(t, 2*time.Second, cfg.MailEnqueueTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Storage.SignedURLTTL)
	assert.False(t, cfg.JobsRequireApproval)
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JOBS_CACHE_TTL", "30")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("ADMIN_EMAIL", "  Admin@X.com ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JOBS_REQUIRE_APPROVAL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.JobsCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "admin@x.com", cfg.AdminEmail)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisAddr)
	assert.True(t, cfg.JobsRequireApproval)
}

func TestLoadReportsAllErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URI", "")
	t.Setenv("JOBS_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "POSTGRES_URI")
	assert.Contains(t, err.Error(), "JOBS_CACHE_TTL")
}
