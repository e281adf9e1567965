package scylla

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"election-service/internal/config"
	"election-service/internal/encryption"
	"election-service/internal/models"
)

func TestToModelDecryptsEmailAndMapsStatus(t *testing.T) {
	em := encryption.NewEncryptionManager(&config.Config{}, nil, zap.NewNop())
	repo := &VoterRepository{encryption: em, logger: zap.NewNop()}

	sealed, err := em.EncryptField(context.Background(), "ada@example.com")
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	v, err := repo.toModel(context.Background(), &voterRow{
		voterID:     "7",
		username:    "ada",
		emailCipher: sealed.Ciphertext,
		emailDEK:    sealed.EncryptedDEK,
		emailKeyID:  sealed.KeyID,
		role:        "voter",
		age:         36,
		region:      "North",
		status:      "rejected",
		verifiedBy:  "1",
		verifiedAt:  created.Add(time.Hour),
		createdAt:   created,
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", v.Email)
	assert.Equal(t, models.StatusRejected, v.Status)
	require.NotNil(t, v.VerifiedAt)
	assert.Equal(t, created.Add(time.Hour), *v.VerifiedAt)
	assert.Nil(t, v.UpdatedAt)
}

func TestToModelRejectsUnknownStatus(t *testing.T) {
	repo := &VoterRepository{encryption: encryption.NewEncryptionManager(&config.Config{}, nil, zap.NewNop())}
	_, err := repo.toModel(context.Background(), &voterRow{voterID: "1", status: "maybe"})
	assert.Error(t, err)
}

func TestDecisionStatementIsConditional(t *testing.T) {
	stmts := newStatements()
	assert.Contains(t, stmts.DecideVerification, "IF verification_status = 'pending'")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stmts.ClaimUsername), "IF NOT EXISTS"))
}
