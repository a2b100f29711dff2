// internal/domain/geo/distance.go
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// DistanceMeters returns the great-circle distance between two points using the haversine formula.
// Targets are campus-local, so no antimeridian or pole handling is done.
func DistanceMeters(latA, lonA, latB, lonB float64) float64 {
	phiA := toRadians(latA)
	phiB := toRadians(latB)
	dPhi := toRadians(latB - latA)
	dLambda := toRadians(lonB - lonA)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phiA)*math.Cos(phiB)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Distance is DistanceMeters for two Points.
func Distance(a, b Point) float64 {
	return DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// ValidCoordinate reports whether lat/lon are finite and within the WGS84 ranges.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
