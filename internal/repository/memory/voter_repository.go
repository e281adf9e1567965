package memory

import (
	"context"
	"sync"
	"time"

	"election-service/internal/models"
	"election-service/internal/repository"
)

// VoterRepository keeps accounts in process memory. It backs development runs without
// ScyllaDB and the service tests.
type VoterRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.Voter
	byUsername map[string]string
}

func NewVoterRepository() *VoterRepository {
	return &VoterRepository{
		byID:       make(map[string]*models.Voter),
		byUsername: make(map[string]string),
	}
}

func (r *VoterRepository) CreateVoter(_ context.Context, voter *models.Voter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[voter.Username]; exists {
		return repository.ErrUsernameTaken
	}
	r.byID[voter.ID] = voter.Clone()
	r.byUsername[voter.Username] = voter.ID
	return nil
}

func (r *VoterRepository) GetVoterByID(_ context.Context, voterID string) (*models.Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.byID[voterID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v.Clone(), nil
}

func (r *VoterRepository) GetVoterByUsername(_ context.Context, username string) (*models.Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *VoterRepository) ListVoters(_ context.Context) ([]*models.Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	voters := make([]*models.Voter, 0, len(r.byID))
	for _, v := range r.byID {
		if v.Role == models.RoleVoter {
			voters = append(voters, v.Clone())
		}
	}
	repository.SortNewestFirst(voters)
	return voters, nil
}

func (r *VoterRepository) SetVerification(_ context.Context, voterID string, status models.VerificationStatus, adminID string, at time.Time) (*models.Voter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byID[voterID]
	if !ok || v.Role != models.RoleVoter {
		return nil, repository.ErrNotFound
	}
	if v.Status.IsDecided() {
		return v.Clone(), repository.ErrAlreadyDecided
	}

	decidedAt := at.UTC()
	v.Status = status
	v.VerifiedAt = &decidedAt
	v.VerifiedBy = adminID
	v.UpdatedAt = &decidedAt
	return v.Clone(), nil
}

func (r *VoterRepository) HealthCheck(context.Context) error {
	return nil
}
