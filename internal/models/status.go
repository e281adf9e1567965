package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// VerificationStatus is the admin decision state of a voter registration.
// On the wire it is the tri-state is_verified: null, true or false.
type VerificationStatus int

const (
	StatusPending VerificationStatus = iota
	StatusVerified
	StatusRejected
)

var statusLabels = map[VerificationStatus]string{
	StatusPending:  "pending",
	StatusVerified: "verified",
	StatusRejected: "rejected",
}

// StatusFromDecision maps an admin decision to the resulting status.
func StatusFromDecision(decision bool) VerificationStatus {
	if decision {
		return StatusVerified
	}
	return StatusRejected
}

// StatusFromNullable maps the tri-state flag: nil is pending.
func StatusFromNullable(v *bool) VerificationStatus {
	if v == nil {
		return StatusPending
	}
	return StatusFromDecision(*v)
}

// ParseStatusLabel accepts pending, verified or rejected (case-insensitive).
func ParseStatusLabel(label string) (VerificationStatus, error) {
	want := strings.ToLower(strings.TrimSpace(label))
	for s, l := range statusLabels {
		if l == want {
			return s, nil
		}
	}
	return StatusPending, fmt.Errorf("unknown verification status %q", label)
}

func (s VerificationStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the display label: pending, verified or rejected.
func (s VerificationStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "unknown"
}

func (s VerificationStatus) String() string {
	return s.Label()
}

// IsDecided reports whether an admin has already verified or rejected the voter.
func (s VerificationStatus) IsDecided() bool {
	return s == StatusVerified || s == StatusRejected
}

// Nullable returns the tri-state form: nil for pending.
func (s VerificationStatus) Nullable() *bool {
	switch s {
	case StatusVerified:
		v := true
		return &v
	case StatusRejected:
		v := false
		return &v
	default:
		return nil
	}
}

func (s VerificationStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid verification status %d", int(s))
	}
	return json.Marshal(s.Nullable())
}

func (s *VerificationStatus) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null":
		*s = StatusPending
	case "true":
		*s = StatusVerified
	case "false":
		*s = StatusRejected
	default:
		return fmt.Errorf("is_verified must be true, false or null, got %s", data)
	}
	return nil
}
