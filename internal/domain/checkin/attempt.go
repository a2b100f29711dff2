// internal/domain/checkin/attempt.go
package checkin

import (
	"time"

	"geo_checkin_bot/internal/domain/geo"
)

// Attempt is one check-in action as captured on this device.
// It is serialized into the offline queue when the database is unreachable.
type Attempt struct {
	SubjectID    string `json:"subject_id"`
	SubjectName  string `json:"subject_name"`
	NotifyChatID int64  `json:"notify_chat_id,omitempty"`

	Timestamp time.Time   `json:"timestamp"`
	Kind      SessionKind `json:"session_kind"`

	TargetID        string  `json:"target_id"`
	TargetName      string  `json:"target_name"`
	TargetLatitude  float64 `json:"target_latitude"`
	TargetLongitude float64 `json:"target_longitude"`
	CourseID        *string `json:"course_id,omitempty"`

	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	Accuracy       *float64       `json:"accuracy,omitempty"`
	LocationName   string         `json:"location_name,omitempty"`
	LocationSource LocationSource `json:"location_source"`

	Program    string `json:"program"`
	IntakeYear string `json:"intake_year"`
	BlockTerm  string `json:"block_term"`
	DeviceID   string `json:"device_id"`

	Distance   float64 `json:"distance_m"`
	IsVerified bool    `json:"is_verified"`
}

// Captured is the location the attempt was made from.
func (a Attempt) Captured() geo.Point {
	return geo.Point{Latitude: a.Latitude, Longitude: a.Longitude}
}

// TargetPoint is the location the attempt was verified against.
func (a Attempt) TargetPoint() geo.Point {
	return geo.Point{Latitude: a.TargetLatitude, Longitude: a.TargetLongitude}
}

// Reverify recomputes distance and verification with v. Queued attempts go through
// this before every submission so a stale outcome is never sent.
func (a *Attempt) Reverify(v geo.Verifier) {
	a.Distance, a.IsVerified = v.Check(a.Captured(), a.TargetPoint())
}

// Payload builds the canonical submission payload. Course linkage is only sent for class check-ins.
func (a Attempt) Payload() Payload {
	p := Payload{
		SubjectID:    a.SubjectID,
		Timestamp:    a.Timestamp,
		SessionKind:  string(a.Kind),
		TargetID:     a.TargetID,
		TargetName:   a.TargetName,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		Accuracy:     a.Accuracy,
		LocationName: a.LocationName,
		Program:      a.Program,
		Block:        a.BlockTerm,
		IntakeYear:   a.IntakeYear,
		DeviceID:     a.DeviceID,
		IsVerified:   a.IsVerified,
		SubjectName:  a.SubjectName,
	}
	if a.Kind == SessionKindClass {
		p.CourseID = a.CourseID
	}
	return p
}
