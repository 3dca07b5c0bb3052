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

	assert.Equal(t, "service-replacement", cfg.App.Name)
	assert.Equal(t, 7, cfg.Replacement.WindowDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Replacement.Window())
	assert.Equal(t, "/my-account/orders", cfg.Replacement.OrdersURL)
	assert.Equal(t, "ywcars-pending", cfg.Replacement.RefundStatus)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Redis.OrderCacheTTL)
	assert.Equal(t, 15*time.Second, cfg.Services.Timeout)
	assert.Empty(t, cfg.Services.RefundURL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("SERVICE_REFUND_URL", "http://refunds.local")
	t.Setenv("REPLACEMENT_WINDOW_DAYS", "14")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, "http://refunds.local", cfg.Services.RefundURL)
	assert.Equal(t, 14*24*time.Hour, cfg.Replacement.Window())
}

func TestLoad_RejectsNonPositiveWindow(t *testing.T) {
	t.Setenv("REPLACEMENT_WINDOW_DAYS", "0")

	_, err := Load()
	assert.Error(t, err)
}
