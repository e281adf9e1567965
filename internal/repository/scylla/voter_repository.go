package scylla

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"election-service/internal/bucketing"
	"election-service/internal/encryption"
	"election-service/internal/models"
	"election-service/internal/repository"
	"election-service/internal/util"
)

// scatterLimit bounds concurrent bucket reads during ListVoters.
const scatterLimit = 8

type VoterRepository struct {
	client     *ScyllaClient
	buckets    *bucketing.BucketingManager
	encryption *encryption.EncryptionManager
	logger     *zap.Logger
}

var _ repository.VoterRepository = (*VoterRepository)(nil)

func NewVoterRepository(client *ScyllaClient, buckets *bucketing.BucketingManager, em *encryption.EncryptionManager, logger *zap.Logger) *VoterRepository {
	return &VoterRepository{
		client:     client,
		buckets:    buckets,
		encryption: em,
		logger:     logger,
	}
}

// CreateVoter claims the username with a lightweight transaction, then writes the
// voter row. The claim is released if the row write fails.
func (r *VoterRepository) CreateVoter(ctx context.Context, voter *models.Voter) error {
	bucket := r.buckets.VoterBucket(voter.ID)

	email, err := r.encryption.EncryptField(ctx, voter.Email)
	if err != nil {
		return fmt.Errorf("failed to encrypt email: %w", err)
	}

	existing := map[string]interface{}{}
	applied, err := r.client.Query(ctx, r.client.Statements.ClaimUsername,
		voter.Username, bucket, voter.ID, voter.CreatedAt,
	).MapScanCAS(existing)
	if err != nil {
		return fmt.Errorf("failed to claim username: %w", err)
	}
	if !applied {
		return repository.ErrUsernameTaken
	}

	err = r.client.Query(ctx, r.client.Statements.InsertVoter,
		bucket,
		voter.ID,
		voter.Username,
		email.Ciphertext,
		email.EncryptedDEK,
		email.KeyID,
		voter.PasswordHash,
		string(voter.Role),
		voter.Age,
		voter.Gender,
		voter.Region,
		voter.Status.Label(),
		voter.VerifiedAt,
		nullableString(voter.VerifiedBy),
		voter.CreatedAt,
		voter.UpdatedAt,
	).Exec()
	if err != nil {
		r.releaseUsername(ctx, voter.Username, voter.ID)
		return fmt.Errorf("failed to insert voter: %w", err)
	}

	util.Debug("Voter stored",
		util.String("voter_id", voter.ID),
		util.Int("bucket", bucket))
	return nil
}

func (r *VoterRepository) releaseUsername(ctx context.Context, username, voterID string) {
	existing := map[string]interface{}{}
	if _, err := r.client.Query(ctx, r.client.Statements.ReleaseUsername, username, voterID).MapScanCAS(existing); err != nil {
		util.Error("Failed to release username claim",
			util.String("username", username),
			util.ErrorField(err))
	}
}

func (r *VoterRepository) GetVoterByID(ctx context.Context, voterID string) (*models.Voter, error) {
	bucket := r.buckets.VoterBucket(voterID)
	iter := r.client.Query(ctx, r.client.Statements.GetVoterByID, bucket, voterID).Iter()

	row := &voterRow{}
	found := row.scan(iter)
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	return r.toModel(ctx, row)
}

func (r *VoterRepository) GetVoterByUsername(ctx context.Context, username string) (*models.Voter, error) {
	var voterID string
	err := r.client.Query(ctx, r.client.Statements.GetUsernameOwner, username).Scan(&voterID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}
	return r.GetVoterByID(ctx, voterID)
}

// ListVoters reads every bucket concurrently and merges the voter-role rows.
func (r *VoterRepository) ListVoters(ctx context.Context) ([]*models.Voter, error) {
	var (
		mu     sync.Mutex
		voters []*models.Voter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scatterLimit)

	for _, bucket := range r.buckets.VoterBuckets() {
		bucket := bucket
		g.Go(func() error {
			rows, err := r.listBucket(gctx, bucket)
			if err != nil {
				return err
			}
			mu.Lock()
			voters = append(voters, rows...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	repository.SortNewestFirst(voters)
	return voters, nil
}

func (r *VoterRepository) listBucket(ctx context.Context, bucket int) ([]*models.Voter, error) {
	iter := r.client.Query(ctx, r.client.Statements.ListVotersBucket, bucket).Iter()

	var out []*models.Voter
	for {
		row := &voterRow{}
		if !row.scan(iter) {
			break
		}
		if models.Role(row.role) != models.RoleVoter {
			continue
		}
		v, err := r.toModel(ctx, row)
		if err != nil {
			iter.Close()
			return nil, err
		}
		out = append(out, v)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list bucket %d: %w", bucket, err)
	}
	return out, nil
}

// SetVerification applies the decision only while the stored status is still pending.
// The condition is evaluated by Paxos, so two admins racing on the same voter cannot
// both win.
func (r *VoterRepository) SetVerification(ctx context.Context, voterID string, status models.VerificationStatus, adminID string, at time.Time) (*models.Voter, error) {
	bucket := r.buckets.VoterBucket(voterID)
	decidedAt := at.UTC()

	previous := map[string]interface{}{}
	applied, err := r.client.Query(ctx, r.client.Statements.DecideVerification,
		status.Label(), decidedAt, adminID, decidedAt, bucket, voterID,
	).MapScanCAS(previous)
	if err != nil {
		return nil, fmt.Errorf("failed to set verification: %w", err)
	}

	if !applied {
		role, _ := previous["role"].(string)
		if role != string(models.RoleVoter) {
			return nil, repository.ErrNotFound
		}
		current, err := r.GetVoterByID(ctx, voterID)
		if err != nil {
			return nil, err
		}
		return current, repository.ErrAlreadyDecided
	}

	util.Info("Verification decided",
		util.String("voter_id", voterID),
		util.String("status", status.Label()),
		util.String("admin_id", adminID))

	return r.GetVoterByID(ctx, voterID)
}

func (r *VoterRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}

type voterRow struct {
	voterID      string
	username     string
	emailCipher  string
	emailDEK     string
	emailKeyID   string
	passwordHash string
	role         string
	age          int
	gender       string
	region       string
	status       string
	verifiedAt   time.Time
	verifiedBy   string
	createdAt    time.Time
	updatedAt    time.Time
}

func (row *voterRow) scan(iter *gocql.Iter) bool {
	return iter.Scan(
		&row.voterID,
		&row.username,
		&row.emailCipher,
		&row.emailDEK,
		&row.emailKeyID,
		&row.passwordHash,
		&row.role,
		&row.age,
		&row.gender,
		&row.region,
		&row.status,
		&row.verifiedAt,
		&row.verifiedBy,
		&row.createdAt,
		&row.updatedAt,
	)
}

func (r *VoterRepository) toModel(ctx context.Context, row *voterRow) (*models.Voter, error) {
	status, err := models.ParseStatusLabel(row.status)
	if err != nil {
		return nil, fmt.Errorf("voter %s: %w", row.voterID, err)
	}

	email := ""
	if row.emailCipher != "" {
		email, err = r.encryption.DecryptField(ctx, &encryption.EncryptedField{
			Ciphertext:   row.emailCipher,
			EncryptedDEK: row.emailDEK,
			KeyID:        row.emailKeyID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt email for voter %s: %w", row.voterID, err)
		}
	}

	v := &models.Voter{
		ID:           row.voterID,
		Username:     row.username,
		Email:        email,
		Age:          row.age,
		Gender:       row.gender,
		Region:       row.region,
		Status:       status,
		CreatedAt:    row.createdAt,
		VerifiedBy:   row.verifiedBy,
		Role:         models.Role(row.role),
		PasswordHash: row.passwordHash,
	}
	if !row.verifiedAt.IsZero() {
		t := row.verifiedAt
		v.VerifiedAt = &t
	}
	if !row.updatedAt.IsZero() {
		t := row.updatedAt
		v.UpdatedAt = &t
	}
	return v, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
