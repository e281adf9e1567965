package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"election-service/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrUsernameTaken  = errors.New("username already registered")
	ErrAlreadyDecided = errors.New("verification already decided")
)

// VoterRepository persists voter and admin accounts.
type VoterRepository interface {
	// CreateVoter stores a new account; ErrUsernameTaken when the username exists.
	CreateVoter(ctx context.Context, voter *models.Voter) error
	GetVoterByID(ctx context.Context, voterID string) (*models.Voter, error)
	GetVoterByUsername(ctx context.Context, username string) (*models.Voter, error)
	// ListVoters returns every account with the voter role, newest registration first.
	ListVoters(ctx context.Context) ([]*models.Voter, error)
	// SetVerification moves a pending voter to status. It never overwrites a decided
	// record: ErrAlreadyDecided is returned instead.
	SetVerification(ctx context.Context, voterID string, status models.VerificationStatus, adminID string, at time.Time) (*models.Voter, error)
	HealthCheck(ctx context.Context) error
}

// SortNewestFirst orders voters by registration time, newest first, breaking ties by id.
func SortNewestFirst(voters []*models.Voter) {
	sort.SliceStable(voters, func(i, j int) bool {
		if voters[i].CreatedAt.Equal(voters[j].CreatedAt) {
			return voters[i].ID < voters[j].ID
		}
		return voters[i].CreatedAt.After(voters[j].CreatedAt)
	})
}
