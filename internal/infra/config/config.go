package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	DatabaseURL     string
	AdminTelegramID int64
	LogLevel        string
	Environment     string

	VerificationRadiusMeters float64
	FallbackLatitude         float64
	FallbackLongitude        float64
	FallbackAccuracyMeters   float64
	LocationTimeout          time.Duration // How long to wait for a shared location

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	SubmitTimeout  time.Duration // Per call, primary and fallback each get their own
	LocalStorePath string

	CronSpecConnectivityCheck string
	CronSpecReplaySweep       string // Empty disables the periodic sweep
	ConnectivityProbeTimeout  time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	if cfg.VerificationRadiusMeters, err = getFloat("VERIFICATION_RADIUS_METERS", 50); err != nil {
		return nil, err
	}
	if cfg.VerificationRadiusMeters <= 0 {
		return nil, fmt.Errorf("VERIFICATION_RADIUS_METERS must be positive, got %v", cfg.VerificationRadiusMeters)
	}
	// Default fallback point: Nairobi city centre
	if cfg.FallbackLatitude, err = getFloat("FALLBACK_LATITUDE", -1.2921); err != nil {
		return nil, err
	}
	if cfg.FallbackLongitude, err = getFloat("FALLBACK_LONGITUDE", 36.8219); err != nil {
		return nil, err
	}
	if cfg.FallbackLatitude < -90 || cfg.FallbackLatitude > 90 || cfg.FallbackLongitude < -180 || cfg.FallbackLongitude > 180 {
		return nil, fmt.Errorf("fallback coordinates out of range: %v, %v", cfg.FallbackLatitude, cfg.FallbackLongitude)
	}
	if cfg.FallbackAccuracyMeters, err = getFloat("FALLBACK_ACCURACY_METERS", 1000); err != nil {
		return nil, err
	}
	if cfg.LocationTimeout, err = getDuration("LOCATION_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.GeocoderURL = strings.TrimRight(getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"), "/")
	cfg.GeocoderUserAgent = getEnv("GEOCODER_USER_AGENT", "geo-checkin-bot/1.0")
	if cfg.GeocoderTimeout, err = getDuration("GEOCODER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.SubmitTimeout, err = getDuration("SUBMIT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.LocalStorePath = getEnv("LOCAL_STORE_PATH", "data/local_store.db")

	cfg.CronSpecConnectivityCheck = getEnv("CRON_SPEC_CONNECTIVITY_CHECK", "@every 30s")
	cfg.CronSpecReplaySweep = os.Getenv("CRON_SPEC_REPLAY_SWEEP")
	if cfg.ConnectivityProbeTimeout, err = getDuration("CONNECTIVITY_PROBE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}
