package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/checkin?sslmode=disable")
	t.Setenv("ADMIN_TELEGRAM_ID", "12345")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, int64(12345), cfg.AdminTelegramID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 50.0, cfg.VerificationRadiusMeters)
	assert.Equal(t, -1.2921, cfg.FallbackLatitude)
	assert.Equal(t, 36.8219, cfg.FallbackLongitude)
	assert.Equal(t, 1000.0, cfg.FallbackAccuracyMeters)
	assert.Equal(t, 15*time.Second, cfg.LocationTimeout)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.GeocoderURL)
	assert.Equal(t, 5*time.Second, cfg.GeocoderTimeout)
	assert.Equal(t, 10*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, "data/local_store.db", cfg.LocalStorePath)
	assert.Equal(t, "@every 30s", cfg.CronSpecConnectivityCheck)
	assert.Empty(t, cfg.CronSpecReplaySweep)
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("VERIFICATION_RADIUS_METERS", "75.5")
	t.Setenv("SUBMIT_TIMEOUT", "3s")
	t.Setenv("GEOCODER_URL", "http://geocoder.local/")
	t.Setenv("CRON_SPEC_REPLAY_SWEEP", "*/10 * * * *")

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 75.5, cfg.VerificationRadiusMeters)
	assert.Equal(t, 3*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, "http://geocoder.local", cfg.GeocoderURL)
	assert.Equal(t, "*/10 * * * *", cfg.CronSpecReplaySweep)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "missing token", key: "TELEGRAM_TOKEN", value: "", wantErr: "TELEGRAM_TOKEN is not set"},
		{name: "missing database", key: "DATABASE_URL", value: "", wantErr: "DATABASE_URL is not set"},
		{name: "bad admin id", key: "ADMIN_TELEGRAM_ID", value: "abc", wantErr: "invalid ADMIN_TELEGRAM_ID"},
		{name: "bad radius", key: "VERIFICATION_RADIUS_METERS", value: "far", wantErr: "invalid VERIFICATION_RADIUS_METERS"},
		{name: "zero radius", key: "VERIFICATION_RADIUS_METERS", value: "0", wantErr: "must be positive"},
		{name: "latitude out of range", key: "FALLBACK_LATITUDE", value: "95", wantErr: "out of range"},
		{name: "bad timeout", key: "LOCATION_TIMEOUT", value: "15", wantErr: "invalid LOCATION_TIMEOUT"},
		{name: "negative timeout", key: "SUBMIT_TIMEOUT", value: "-1s", wantErr: "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := fromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
