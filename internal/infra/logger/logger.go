// internal/infra/logger/logger.go
package logger

import (
	"os"
	"strings"

	"geo_checkin_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from the application config.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		Log.SetLevel(logrus.InfoLevel)
	} else {
		Log.SetLevel(level)
	}

	env := strings.ToLower(cfg.Environment)
	if env == "production" || env == "staging" {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": env,
	}).Info("Logger initialized")
}

// Component returns an entry tagged with the component name, e.g. "checkin" or "replay".
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
