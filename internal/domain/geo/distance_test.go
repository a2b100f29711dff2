package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceMeters(-1.2921, 36.8219, -1.2921, 36.8219))
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][4]float64{
			{-1.2921, 36.8219, -1.3000, 36.8000},
			{51.5074, -0.1278, 48.8566, 2.3522},
			{0, 0, 10, 10},
		}
		for _, p := range pairs {
			ab := DistanceMeters(p[0], p[1], p[2], p[3])
			ba := DistanceMeters(p[2], p[3], p[0], p[1])
			assert.InDelta(t, ab, ba, 1e-6)
			assert.GreaterOrEqual(t, ab, 0.0)
		}
	})

	t.Run("one degree of latitude along a meridian", func(t *testing.T) {
		const want = 111195.0
		got := DistanceMeters(0, 36.8219, 1, 36.8219)
		assert.LessOrEqual(t, math.Abs(got-want)/want, 0.01, "got %f", got)
	})

	t.Run("short campus distance", func(t *testing.T) {
		// ~0.0009 degrees of latitude is roughly 100m
		got := DistanceMeters(-1.2921, 36.8219, -1.2930, 36.8219)
		assert.InDelta(t, 100.07, got, 1.0)
	})
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{name: "nairobi", lat: -1.2921, lon: 36.8219, want: true},
		{name: "bounds", lat: 90, lon: -180, want: true},
		{name: "lat too high", lat: 90.1, lon: 0, want: false},
		{name: "lon too low", lat: 0, lon: -180.5, want: false},
		{name: "nan", lat: math.NaN(), lon: 0, want: false},
		{name: "inf", lat: 0, lon: math.Inf(1), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCoordinate(tt.lat, tt.lon))
		})
	}
}
