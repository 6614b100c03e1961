package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"DB_DSN", "ENV", "HTTP_ADDR", "NATS_URL", "TELEGRAM_TOKEN", "MIGRATIONS_DIR", "TIMEZONE", "JOIN_TIMEOUT", "SWEEP_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.DBDSN)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 5*time.Second, cfg.JoinTimeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("TIMEZONE", "Europe/Moscow")
	t.Setenv("JOIN_TIMEOUT", "2s")
	t.Setenv("SWEEP_INTERVAL", "0s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
	assert.Equal(t, 2*time.Second, cfg.JoinTimeout)
	assert.Zero(t, cfg.SweepInterval)
}

func TestFromEnv_Invalid(t *testing.T) {
	for _, tc := range []struct{ key, value string }{
		{"TIMEZONE", "Nowhere/Land"},
		{"JOIN_TIMEOUT", "soon"},
		{"JOIN_TIMEOUT", "0s"},
		{"SWEEP_INTERVAL", "often"},
	} {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
