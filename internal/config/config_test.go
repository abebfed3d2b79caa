package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.InDelta(t, 0.10, cfg.ServiceFeeRate, 1e-9)
	assert.Equal(t, time.Minute, cfg.ReleaseCheckInterval)
	assert.Equal(t, 24*time.Hour, cfg.ReleaseDelay)
	assert.Equal(t, 15, cfg.DailyReleaseAnchorHour)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.True(t, cfg.SchedulerEnabled)
	assert.False(t, cfg.DemoSeed)
	assert.False(t, cfg.DBMigrate)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TIMEZONE", "UTC")

	t.Run("fee rate out of range", func(t *testing.T) {
		t.Setenv("SERVICE_FEE_RATE", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad interval", func(t *testing.T) {
		t.Setenv("RELEASE_CHECK_INTERVAL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("production needs a database", func(t *testing.T) {
		t.Setenv("APP_ENV", "prod")
		t.Setenv("DB_DSN", "")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
