package voterlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election-service/internal/models"
)

// fiveVoters has statuses [pending, verified, rejected, pending, verified].
func fiveVoters() []*models.Voter {
	return []*models.Voter{
		{ID: "1", Username: "alice", Email: "alice@example.com", Status: models.StatusPending},
		{ID: "2", Username: "bob", Email: "bob@Example.org", Status: models.StatusVerified},
		{ID: "3", Username: "Carol", Email: "carol@example.com", Status: models.StatusRejected},
		{ID: "4", Username: "dave", Email: "dave@mail.net", Status: models.StatusPending},
		{ID: "5", Username: "erin", Email: "erin@example.org", Status: models.StatusVerified},
	}
}

func ids(voters []*models.Voter) []string {
	out := make([]string, len(voters))
	for i, v := range voters {
		out[i] = v.ID
	}
	return out
}

func TestFilterPendingScenario(t *testing.T) {
	got := Filter(fiveVoters(), FilterPending, "")
	assert.Equal(t, []string{"1", "4"}, ids(got))
	for _, v := range got {
		assert.Nil(t, v.Status.Nullable())
	}
}

func TestFilterByStatusPreservesOrder(t *testing.T) {
	voters := fiveVoters()
	tests := []struct {
		filter StatusFilter
		want   []string
	}{
		{FilterAll, []string{"1", "2", "3", "4", "5"}},
		{FilterVerified, []string{"2", "5"}},
		{FilterRejected, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(voters, tt.filter, "")))
		})
	}
}

func TestFilterSearchIsCaseInsensitiveOverUsernameAndEmail(t *testing.T) {
	voters := fiveVoters()

	assert.Equal(t, []string{"3"}, ids(Filter(voters, FilterAll, "CAROL")))
	assert.Equal(t, []string{"2", "5"}, ids(Filter(voters, FilterAll, "example.ORG")))
	assert.Equal(t, []string{"5"}, ids(Filter(voters, FilterVerified, "erin")))
	assert.Empty(t, Filter(voters, FilterPending, "erin"))
}

func TestFilterBlankSearchReturnsStatusSet(t *testing.T) {
	voters := fiveVoters()
	assert.Equal(t, ids(Filter(voters, FilterVerified, "")), ids(Filter(voters, FilterVerified, "   ")))
}

func TestFilterDoesNotMutateSource(t *testing.T) {
	voters := fiveVoters()
	_ = Filter(voters, FilterRejected, "a")
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(voters))
}

func TestCounts(t *testing.T) {
	assert.Equal(t, StatusCounts{All: 5, Pending: 2, Verified: 2, Rejected: 1}, Counts(fiveVoters()))
	assert.Equal(t, StatusCounts{}, Counts(nil))
}

func TestParseStatusFilter(t *testing.T) {
	f, err := ParseStatusFilter(" Verified ")
	require.NoError(t, err)
	assert.Equal(t, FilterVerified, f)

	f, err = ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseStatusFilter("approved")
	assert.Error(t, err)
}
