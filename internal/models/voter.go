package models

import "time"

type Role string

const (
	RoleVoter Role = "voter"
	RoleAdmin Role = "admin"
)

// Voter is a registered account. Admin accounts share the table and are never listed as voters.
type Voter struct {
	ID         string             `json:"id"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	Age        int                `json:"age"`
	Gender     string             `json:"gender"`
	Region     string             `json:"region"`
	Status     VerificationStatus `json:"is_verified"`
	CreatedAt  time.Time          `json:"registered_at"`
	VerifiedAt *time.Time         `json:"verified_at,omitempty"`
	VerifiedBy string             `json:"verified_by,omitempty"`

	Role         Role       `json:"-"`
	PasswordHash string     `json:"-"`
	UpdatedAt    *time.Time `json:"-"`
}

func (v *Voter) IsAdmin() bool {
	return v.Role == RoleAdmin
}

// Clone returns a copy that shares no pointers with v.
func (v *Voter) Clone() *Voter {
	if v == nil {
		return nil
	}
	c := *v
	if v.VerifiedAt != nil {
		t := *v.VerifiedAt
		c.VerifiedAt = &t
	}
	if v.UpdatedAt != nil {
		t := *v.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// StatusResponse is the body of the voter self-status endpoint.
type StatusResponse struct {
	IsVerified VerificationStatus `json:"is_verified"`
}

// TokenPair is returned by login; access authenticates requests, refresh mints new access tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
