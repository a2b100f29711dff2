package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"geo_checkin_bot/internal/domain/checkin"
	"geo_checkin_bot/internal/domain/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var campus = geo.Point{Latitude: -1.2921, Longitude: 36.8219}

func TestLocationAcquirer_Acquire(t *testing.T) {
	acq := NewLocationAcquirer(campus, 1000, 50*time.Millisecond, testLogger())

	t.Run("device fix", func(t *testing.T) {
		loc := &fakeLocator{reading: checkin.Reading{Latitude: -1.30, Longitude: 36.80, Accuracy: ptr(8.0), Name: "Ward 4"}}
		r := acq.Acquire(context.Background(), loc)
		assert.Equal(t, checkin.SourceDevice, r.Source)
		assert.Equal(t, -1.30, r.Latitude)
		assert.Equal(t, "Ward 4", r.Name)
		assert.Empty(t, r.Reason)
	})

	fallbackCases := []struct {
		name    string
		locator DeviceLocator
		reason  string
	}{
		{name: "permission denied", locator: &fakeLocator{err: checkin.ErrLocationPermissionDenied}, reason: "denied"},
		{name: "unsupported", locator: &fakeLocator{err: checkin.ErrLocationUnsupported}, reason: "not supported"},
		{name: "no locator", locator: nil, reason: "not supported"},
		{name: "other error", locator: &fakeLocator{err: errors.New("gps off")}, reason: "gps off"},
		{name: "invalid coordinates", locator: &fakeLocator{reading: checkin.Reading{Latitude: 123, Longitude: 0}}, reason: "invalid"},
		{name: "timeout", locator: newBlockingLocator(), reason: "timed out"},
	}
	for _, tt := range fallbackCases {
		t.Run(tt.name, func(t *testing.T) {
			r := acq.Acquire(context.Background(), tt.locator)
			assert.Equal(t, checkin.SourceFallback, r.Source)
			assert.True(t, r.IsFallback())
			assert.Equal(t, campus.Latitude, r.Latitude)
			assert.Equal(t, campus.Longitude, r.Longitude)
			require.NotNil(t, r.Accuracy)
			assert.Equal(t, 1000.0, *r.Accuracy)
			assert.Contains(t, r.Reason, tt.reason)
		})
	}
}

func TestNewLocationAcquirer_Defaults(t *testing.T) {
	acq := NewLocationAcquirer(campus, 0, 0, testLogger())
	assert.Equal(t, DefaultLocationTimeout, acq.timeout)
	assert.Equal(t, DefaultFallbackAccuracyMeters, acq.fallbackAccuracy)
}
