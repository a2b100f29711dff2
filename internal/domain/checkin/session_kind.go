// internal/domain/checkin/session_kind.go
package checkin

import (
	"fmt"
	"strings"
)

// SessionKind selects which target catalog a check-in is made against.
type SessionKind string

const (
	SessionKindClinical SessionKind = "Clinical"
	SessionKindClass    SessionKind = "Class"
)

// ParseSessionKind accepts the kind name in any letter case.
func ParseSessionKind(s string) (SessionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clinical":
		return SessionKindClinical, nil
	case "class":
		return SessionKindClass, nil
	default:
		return "", fmt.Errorf("unknown session kind %q", s)
	}
}

func (k SessionKind) Valid() bool {
	return k == SessionKindClinical || k == SessionKindClass
}
