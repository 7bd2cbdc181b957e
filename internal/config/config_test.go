package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "LOG_LEVEL", "PORT", "KNMI_HOURLY_URL", "HTTP_TIMEOUT", "IMPORT_TIMEOUT",
		"UPLOAD_DIR", "UPLOAD_MAX_BYTES", "SESSION_TTL", "RECONCILE_INTERVAL", "CACHE_REPORT_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultWeatherURL, cfg.WeatherURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ImportTimeout)
	assert.Equal(t, 10<<20, cfg.UploadMaxBytes)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, time.Minute, cfg.CacheReportInterval)
	assert.NotEmpty(t, cfg.UploadDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("KNMI_HOURLY_URL", "http://localhost:1234/knmi")
	t.Setenv("RECONCILE_INTERVAL", "10s")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:1234/knmi", cfg.WeatherURL)
	assert.Equal(t, 10*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 1024, cfg.UploadMaxBytes)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("KNMI_HOURLY_URL", "not a url")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("KNMI_HOURLY_URL", "")
	t.Setenv("HTTP_TIMEOUT", "-1s")
	_, err = Load()
	assert.Error(t, err)
}
