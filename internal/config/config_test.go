package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("BOOTSTRAP_ADMIN_IDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "marketplace-bot", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 30*time.Minute, cfg.Intake.SessionTTL())
	assert.Equal(t, 8, cfg.Notification.Concurrency)
	assert.Empty(t, cfg.Bootstrap.AdminIDs)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("BOOTSTRAP_ADMIN_IDS", "42, 7")
	t.Setenv("INTAKE_SESSION_TTL_MINUTES", "5")
	t.Setenv("NOTIFY_RATE_PER_SECOND", "2.5")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, []int64{42, 7}, cfg.Bootstrap.AdminIDs)
	assert.Equal(t, 5*time.Minute, cfg.Intake.SessionTTL())
	assert.InDelta(t, 2.5, cfg.Notification.RatePerSecond, 0.0001)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("admin ids", func(t *testing.T) {
		t.Setenv("BOOTSTRAP_ADMIN_IDS", "42,abc")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "x")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestGetEnvAsInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "nope")
	assert.Equal(t, 3, getEnvAsInt("SOME_INT", 3))
}
