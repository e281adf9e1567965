package redis

import (
	"context"
	"fmt"
	"time"

	"election-service/internal/client"
	"election-service/internal/util"
)

const revokedTokenPrefix = "revoked_token:"

// SessionCache tracks bearer tokens revoked by logout. Entries expire together with
// the token they block, so the set never outgrows the live token population.
type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

func (c *SessionCache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl); err != nil {
		util.Error("Failed to revoke token",
			util.String("token_id", tokenID),
			util.ErrorField(err))
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	util.Debug("Token revoked",
		util.String("token_id", tokenID),
		util.Duration("ttl", ttl))
	return nil
}

func (c *SessionCache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	revoked, err := c.client.Exists(ctx, revokedTokenPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return revoked, nil
}
