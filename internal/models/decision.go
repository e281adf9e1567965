package models

import "time"

// Decision records one admin verification action, as published to the event stream
// and stored in the audit index.
type Decision struct {
	EventID   string             `json:"event_id"`
	VoterID   string             `json:"voter_id"`
	AdminID   string             `json:"admin_id"`
	Status    VerificationStatus `json:"is_verified"`
	Region    string             `json:"region"`
	DecidedAt time.Time          `json:"decided_at"`
}

// RegistrationStats backs the admin analytics view.
type RegistrationStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByRegion map[string]int `json:"by_region"`
	ByGender map[string]int `json:"by_gender"`
}
