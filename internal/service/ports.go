package service

import (
	"context"
	"time"

	"election-service/internal/models"
)

type EventPublisher interface {
	PublishRegistered(ctx context.Context, voter *models.Voter) error
	PublishDecision(ctx context.Context, decision *models.Decision) error
}

type AuditLog interface {
	RecordDecision(ctx context.Context, decision *models.Decision) error
	History(ctx context.Context, voterID string) ([]*models.Decision, error)
}

type AnalyticsStore interface {
	RecordRegistration(ctx context.Context, voter *models.Voter) error
	RecordDecision(ctx context.Context, decision *models.Decision) error
	Summary(ctx context.Context) (*models.RegistrationStats, error)
}

// TokenRevoker blocks bearer tokens before their natural expiry.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LoginLimiter locks a username after repeated failed logins.
type LoginLimiter interface {
	RecordFailure(ctx context.Context, username string) (bool, error)
	IsLocked(ctx context.Context, username string) (bool, error)
	Reset(ctx context.Context, username string) error
}
