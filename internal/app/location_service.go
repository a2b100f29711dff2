// internal/app/location_service.go
package app

import (
	"context"
	"errors"
	"time"

	"geo_checkin_bot/internal/domain/checkin"
	"geo_checkin_bot/internal/domain/geo"

	"github.com/sirupsen/logrus"
)

const (
	DefaultLocationTimeout        = 15 * time.Second
	DefaultFallbackAccuracyMeters = 1000.0
)

// DeviceLocator is the device's geolocation capability. Implementations must only return
// fixes obtained after Locate was called.
type DeviceLocator interface {
	Locate(ctx context.Context) (checkin.Reading, error)
}

// LocationAcquirer turns a DeviceLocator into a reading that is always usable.
type LocationAcquirer struct {
	fallback         geo.Point
	fallbackAccuracy float64
	timeout          time.Duration
	logger           *logrus.Entry
}

func NewLocationAcquirer(fallback geo.Point, fallbackAccuracy float64, timeout time.Duration, logger *logrus.Entry) *LocationAcquirer {
	if timeout <= 0 {
		timeout = DefaultLocationTimeout
	}
	if fallbackAccuracy <= 0 {
		fallbackAccuracy = DefaultFallbackAccuracyMeters
	}
	return &LocationAcquirer{
		fallback:         fallback,
		fallbackAccuracy: fallbackAccuracy,
		timeout:          timeout,
		logger:           logger,
	}
}

// Acquire never fails. Any locator error, timeout or invalid fix yields the fallback reading.
func (a *LocationAcquirer) Acquire(ctx context.Context, locator DeviceLocator) checkin.Reading {
	if locator == nil {
		return a.fallbackReading("geolocation is not supported on this device")
	}

	lctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reading, err := locator.Locate(lctx)
	if err != nil {
		a.logger.WithError(err).Info("Device location unavailable, using fallback")
		return a.fallbackReading(fallbackReason(err))
	}
	if !geo.ValidCoordinate(reading.Latitude, reading.Longitude) {
		a.logger.WithFields(logrus.Fields{
			"latitude":  reading.Latitude,
			"longitude": reading.Longitude,
		}).Warn("Device returned invalid coordinates, using fallback")
		return a.fallbackReading("device returned invalid coordinates")
	}

	reading.Source = checkin.SourceDevice
	reading.Reason = ""
	return reading
}

func (a *LocationAcquirer) fallbackReading(reason string) checkin.Reading {
	acc := a.fallbackAccuracy
	return checkin.Reading{
		Latitude:  a.fallback.Latitude,
		Longitude: a.fallback.Longitude,
		Accuracy:  &acc,
		Source:    checkin.SourceFallback,
		Reason:    reason,
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, checkin.ErrLocationPermissionDenied):
		return "location permission was denied"
	case errors.Is(err, checkin.ErrLocationUnsupported):
		return "geolocation is not supported on this device"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for the device location"
	case errors.Is(err, context.Canceled):
		return "location request was cancelled"
	default:
		return "location unavailable: " + err.Error()
	}
}
