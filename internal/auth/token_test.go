package auth

import (
	"context"
	"testing"
	"time"

	"election-service/internal/config"
	"election-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *TokenManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-test-secret-test-secret"
	cfg.JWT.Issuer = "election-service"
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour
	return NewTokenManager(cfg)
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager()
	pair, err := m.Issue("voter-1", models.RoleVoter)
	require.NoError(t, err)

	claims, err := m.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "voter-1", claims.UserID)
	assert.Equal(t, models.RoleVoter, claims.Role)
	assert.NotEmpty(t, claims.ID)

	_, err = m.Parse(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	refresh, err := m.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestExpiredToken(t *testing.T) {
	m := newTestManager()
	start := time.Now()
	m.now = func() time.Time { return start }
	token, err := m.IssueAccess("admin-1", models.RoleAdmin)
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = m.Parse(token, AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRejectsForeignSignature(t *testing.T) {
	other := newTestManager()
	other.secret = []byte("another-secret-another-secret-xx")
	token, err := other.IssueAccess("admin-1", models.RoleAdmin)
	require.NoError(t, err)

	_, err = newTestManager().Parse(token, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = newTestManager().Parse("not-a-jwt", AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{UserID: "u"})
	c, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", c.UserID)
}
