// internal/domain/geo/verifier.go
package geo

// DefaultRadiusMeters is the verification radius used when none is configured.
const DefaultRadiusMeters = 50.0

// Verifier classifies a check-in distance against a fixed radius.
type Verifier struct {
	RadiusMeters float64
}

func NewVerifier(radiusMeters float64) Verifier {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return Verifier{RadiusMeters: radiusMeters}
}

// IsVerified is true iff distance <= radius. The boundary counts as verified.
func (v Verifier) IsVerified(distance float64) bool {
	return distance <= v.RadiusMeters
}

// Check computes the distance between two points and its verification outcome.
func (v Verifier) Check(captured, target Point) (float64, bool) {
	d := Distance(captured, target)
	return d, v.IsVerified(d)
}
