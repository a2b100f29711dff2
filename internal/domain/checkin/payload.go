// internal/domain/checkin/payload.go
package checkin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Payload is the single wire shape shared by the atomic procedure and the direct insert.
type Payload struct {
	SubjectID    string    `json:"student_id" validate:"required"`
	Timestamp    time.Time `json:"timestamp"`
	SessionKind  string    `json:"session_type" validate:"required,oneof=Clinical Class"`
	TargetID     string    `json:"target_id" validate:"required"`
	TargetName   string    `json:"target_name" validate:"required"`
	Latitude     float64   `json:"latitude" validate:"latitude"`
	Longitude    float64   `json:"longitude" validate:"longitude"`
	Accuracy     *float64  `json:"accuracy" validate:"omitempty,gte=0"`
	LocationName string    `json:"location_name"`
	Program      string    `json:"program"`
	Block        string    `json:"block"`
	IntakeYear   string    `json:"intake_year"`
	DeviceID     string    `json:"device_id" validate:"required"`
	IsVerified   bool      `json:"is_verified"`
	CourseID     *string   `json:"course_id"`
	SubjectName  string    `json:"student_name"`
}

// ErrInvalidPayload is wrapped by every Payload.Validate failure.
var ErrInvalidPayload = errors.New("invalid check-in payload")

func (p Payload) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidPayload)
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
