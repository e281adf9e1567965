package review

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election-service/internal/apiclient"
	"election-service/internal/models"
	"election-service/internal/session"
	"election-service/internal/voterlist"
)

type fakeAPI struct {
	mu       sync.Mutex
	voters   []*models.Voter
	listErr  error
	patchErr error
	reply    func(voterID string) *models.Voter
	patches  []string
}

func (f *fakeAPI) ListVoters(_ context.Context, token string) ([]*models.Voter, error) {
	if token != "admin-token" {
		return nil, apiclient.ErrUnauthorized
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Voter, len(f.voters))
	for i, v := range f.voters {
		out[i] = v.Clone()
	}
	return out, nil
}

func (f *fakeAPI) SetVerification(_ context.Context, voterID string, decision bool, _ string) (*models.Voter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, voterID)
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	if f.reply != nil {
		return f.reply(voterID), nil
	}
	for _, v := range f.voters {
		if v.ID == voterID {
			c := v.Clone()
			c.Status = models.StatusFromDecision(decision)
			return c, nil
		}
	}
	return nil, &apiclient.APIError{StatusCode: http.StatusNotFound}
}

func seed() []*models.Voter {
	return []*models.Voter{
		{ID: "1", Username: "alice", Status: models.StatusPending},
		{ID: "2", Username: "bob", Status: models.StatusVerified},
		{ID: "3", Username: "carol", Status: models.StatusPending},
		{ID: "4", Username: "dave", Status: models.StatusRejected},
		{ID: "5", Username: "erin", Status: models.StatusVerified},
	}
}

func loadedBoard(t *testing.T, api *fakeAPI) *Board {
	t.Helper()
	b := NewBoard(api, &session.Session{AdminToken: "admin-token"})
	require.NoError(t, b.Load(context.Background()))
	return b
}

func TestDecideReplacesOnlyTheConfirmedRecord(t *testing.T) {
	api := &fakeAPI{voters: seed()}
	b := loadedBoard(t, api)
	before := b.Voters()

	updated, err := b.Decide(context.Background(), "3", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, updated.Status)

	after := b.Voters()
	for i := range after {
		if after[i].ID == "3" {
			assert.Equal(t, models.StatusVerified, after[i].Status)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
}

func TestDecideOnDecidedVoterSendsNoRequest(t *testing.T) {
	api := &fakeAPI{voters: seed()}
	b := loadedBoard(t, api)

	_, err := b.Decide(context.Background(), "2", false)
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	_, err = b.Decide(context.Background(), "99", true)
	assert.ErrorIs(t, err, ErrVoterNotFound)

	assert.Empty(t, api.patches)
}

func TestDecideFailureLeavesStateUnchanged(t *testing.T) {
	api := &fakeAPI{voters: seed(), patchErr: &apiclient.TransportError{Op: "PATCH", Err: errors.New("connection refused")}}
	b := loadedBoard(t, api)
	before := b.Voters()

	_, err := b.Decide(context.Background(), "1", true)
	var terr *apiclient.TransportError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, before, b.Voters())
}

func TestDecideRequiresConfirmedRecord(t *testing.T) {
	tests := []struct {
		name  string
		reply func(voterID string) *models.Voter
	}{
		{name: "message only body", reply: func(string) *models.Voter { return &models.Voter{} }},
		{name: "no body", reply: func(string) *models.Voter { return nil }},
		{name: "other voter", reply: func(string) *models.Voter {
			return &models.Voter{ID: "3", Username: "carol", Status: models.StatusVerified}
		}},
		{name: "status not applied", reply: func(id string) *models.Voter {
			return &models.Voter{ID: id, Username: "alice", Status: models.StatusPending}
		}},
		{name: "opposite status", reply: func(id string) *models.Voter {
			return &models.Voter{ID: id, Username: "alice", Status: models.StatusRejected}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{voters: seed(), reply: tt.reply}
			b := loadedBoard(t, api)
			before := b.Voters()

			updated, err := b.Decide(context.Background(), "1", true)
			assert.ErrorIs(t, err, ErrUnconfirmed)
			assert.Nil(t, updated)
			assert.Equal(t, before, b.Voters())
		})
	}
}

func TestServerConflictMapsToAlreadyDecided(t *testing.T) {
	api := &fakeAPI{voters: seed(), patchErr: &apiclient.APIError{StatusCode: http.StatusConflict, Message: "Voter has already been rejected"}}
	b := loadedBoard(t, api)

	_, err := b.Decide(context.Background(), "1", true)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, models.StatusPending, b.View(voterlist.FilterAll, "alice")[0].Status)
}

func TestLoadFailureEmptiesList(t *testing.T) {
	api := &fakeAPI{voters: seed()}
	b := loadedBoard(t, api)
	require.Len(t, b.Voters(), 5)

	api.listErr = errors.New("boom")
	assert.Error(t, b.Load(context.Background()))
	assert.Empty(t, b.Voters())
}

func TestLoadWithoutAdminLogin(t *testing.T) {
	b := NewBoard(&fakeAPI{voters: seed()}, &session.Session{VoterToken: "v"})
	assert.ErrorIs(t, b.Load(context.Background()), session.ErrNotLoggedIn)
}

func TestViewAndCounts(t *testing.T) {
	b := loadedBoard(t, &fakeAPI{voters: seed()})

	pending := b.View(voterlist.FilterPending, "")
	require.Len(t, pending, 2)
	assert.Equal(t, "1", pending[0].ID)
	assert.Equal(t, "3", pending[1].ID)

	assert.Equal(t, voterlist.StatusCounts{All: 5, Pending: 2, Verified: 2, Rejected: 1}, b.Counts())

	// callers get copies
	pending[0].Status = models.StatusRejected
	assert.Equal(t, 2, b.Counts().Pending)
}

func TestConcurrentDecisionsOnDifferentVoters(t *testing.T) {
	api := &fakeAPI{voters: seed()}
	b := loadedBoard(t, api)

	var wg sync.WaitGroup
	for _, id := range []string{"1", "3"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Decide(context.Background(), id, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, b.Counts().Rejected)
	assert.Zero(t, b.Counts().Pending)
}
