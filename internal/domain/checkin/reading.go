// internal/domain/checkin/reading.go
package checkin

import (
	"errors"
	"fmt"
)

// LocationSource tells where a Reading came from.
type LocationSource string

const (
	SourceDevice   LocationSource = "device"
	SourceFallback LocationSource = "fallback"
)

// ErrLocationPermissionDenied is returned by device locators when the user refuses to share a location.
var ErrLocationPermissionDenied = errors.New("location permission denied")

// ErrLocationUnsupported is returned by device locators that cannot produce a location at all.
var ErrLocationUnsupported = errors.New("geolocation is not supported")

// Reading is one location fix.
type Reading struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters, nil when unknown
	Name      string   // human readable name supplied with the fix, if any
	Source    LocationSource
	Reason    string // why the fallback was used
}

func (r Reading) IsFallback() bool {
	return r.Source == SourceFallback
}

// CoordinateLabel is the textual stand-in for a place name when none can be resolved.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("Lat:%.4f, Lon:%.4f", lat, lon)
}
