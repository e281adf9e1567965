// Package review keeps an admin's working copy of the voter list and applies
// verification decisions through the API.
package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"election-service/internal/apiclient"
	"election-service/internal/models"
	"election-service/internal/session"
	"election-service/internal/voterlist"
)

var (
	ErrVoterNotFound  = errors.New("voter not in the loaded list")
	ErrAlreadyDecided = errors.New("voter verification already decided")
	ErrUnconfirmed    = errors.New("server did not confirm the decision")
)

// VoterAPI is the part of apiclient.APIClient the board uses.
type VoterAPI interface {
	ListVoters(ctx context.Context, token string) ([]*models.Voter, error)
	SetVerification(ctx context.Context, voterID string, decision bool, token string) (*models.Voter, error)
}

// Board is safe for concurrent use. No lock is held during a request, so a Load racing
// a Decide is last-writer-wins.
type Board struct {
	api     VoterAPI
	session *session.Session

	mu     sync.RWMutex
	voters []*models.Voter
}

func NewBoard(api VoterAPI, sess *session.Session) *Board {
	return &Board{api: api, session: sess}
}

// Load replaces the working copy. On failure the list is emptied and the error returned.
func (b *Board) Load(ctx context.Context) error {
	token, err := b.session.Token(models.RoleAdmin)
	if err != nil {
		b.replaceAll(nil)
		return err
	}

	voters, err := b.api.ListVoters(ctx, token)
	if err != nil {
		b.replaceAll(nil)
		return fmt.Errorf("failed to load voters: %w", err)
	}
	b.replaceAll(voters)
	return nil
}

func (b *Board) replaceAll(voters []*models.Voter) {
	b.mu.Lock()
	b.voters = voters
	b.mu.Unlock()
}

// Decide verifies or rejects a pending voter. Only a reply carrying the same voter
// with the decided status is written back; anything else, including a bare 2xx
// message, is ErrUnconfirmed and leaves the working copy as it was.
func (b *Board) Decide(ctx context.Context, voterID string, decision bool) (*models.Voter, error) {
	b.mu.RLock()
	current := b.find(voterID)
	b.mu.RUnlock()

	if current == nil {
		return nil, ErrVoterNotFound
	}
	if current.Status.IsDecided() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyDecided, voterID, current.Status.Label())
	}

	token, err := b.session.Token(models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	updated, err := b.api.SetVerification(ctx, voterID, decision, token)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusConflict) {
			return nil, errors.Join(ErrAlreadyDecided, err)
		}
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return nil, errors.Join(ErrVoterNotFound, err)
		}
		return nil, err
	}
	want := models.StatusFromDecision(decision)
	if updated == nil || updated.ID != voterID || updated.Status != want {
		return nil, fmt.Errorf("%w: expected %s to be %s", ErrUnconfirmed, voterID, want.Label())
	}

	b.mu.Lock()
	for i, v := range b.voters {
		if v.ID == updated.ID {
			b.voters[i] = updated
			break
		}
	}
	b.mu.Unlock()

	return updated.Clone(), nil
}

func (b *Board) find(voterID string) *models.Voter {
	for _, v := range b.voters {
		if v.ID == voterID {
			return v
		}
	}
	return nil
}

// Voters returns a copy of the working list in server order.
func (b *Board) Voters() []*models.Voter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.voters)
}

// View filters the working copy without a round trip.
func (b *Board) View(status voterlist.StatusFilter, search string) []*models.Voter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(voterlist.Filter(b.voters, status, search))
}

func (b *Board) Counts() voterlist.StatusCounts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return voterlist.Counts(b.voters)
}

func cloneAll(voters []*models.Voter) []*models.Voter {
	out := make([]*models.Voter, len(voters))
	for i, v := range voters {
		out[i] = v.Clone()
	}
	return out
}
