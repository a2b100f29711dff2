// internal/domain/checkin/target.go
package checkin

import (
	"strings"

	"geo_checkin_bot/internal/domain/geo"
)

// Target is a named location a student checks into: a clinical area or a class section.
// Targets are owned by the administrative system and are read-only here.
type Target struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      SessionKind `json:"kind"`
	Latitude  *float64    `json:"latitude,omitempty"` // nil when the catalog has no coordinates
	Longitude *float64    `json:"longitude,omitempty"`
	BlockTerm string      `json:"block_term,omitempty"` // optional cohort tag, empty matches every block
	CourseID  *string     `json:"course_id,omitempty"`  // class sections only
}

// HasCoordinates reports whether both coordinates are present.
func (t Target) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}

// Point returns the target coordinates, or fallback when they are absent.
func (t Target) Point(fallback geo.Point) geo.Point {
	if !t.HasCoordinates() {
		return fallback
	}
	return geo.Point{Latitude: *t.Latitude, Longitude: *t.Longitude}
}

// Cohort narrows the target catalogs to a student's program, intake and block.
type Cohort struct {
	Program    string
	IntakeYear string
	BlockTerm  string
}

// TargetsKey is the local store key of the last resolved target list for a kind and cohort.
func TargetsKey(kind SessionKind, c Cohort) string {
	return strings.Join([]string{"targets", string(kind), c.Program, c.IntakeYear, c.BlockTerm}, ":")
}
