package redis

import (
	"context"
	"fmt"
	"time"

	"election-service/internal/client"
	"election-service/internal/util"
)

const (
	loginAttemptPrefix = "login_attempts:"
	loginLockPrefix    = "login_lock:"
)

// RateLimitCache counts failed logins per username and holds the temporary lock
// applied once the limit is reached.
type RateLimitCache struct {
	client      *client.RedisClient
	maxAttempts int
	window      time.Duration
	lockFor     time.Duration
}

func NewRateLimitCache(client *client.RedisClient, maxAttempts int, window, lockFor time.Duration) *RateLimitCache {
	return &RateLimitCache{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		lockFor:     lockFor,
	}
}

// RecordFailure counts a failed login and locks the username once the limit is hit.
// It reports whether the username is now locked.
func (c *RateLimitCache) RecordFailure(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := c.client.IncrWithExpire(ctx, loginAttemptPrefix+username, c.window)
	if err != nil {
		util.Error("Failed to increment login attempts",
			util.String("username", username),
			util.ErrorField(err))
		return false, fmt.Errorf("failed to increment login attempts: %w", err)
	}

	if int(count) < c.maxAttempts {
		return false, nil
	}

	if _, err := c.client.SetNX(ctx, loginLockPrefix+username, "locked", c.lockFor); err != nil {
		return false, fmt.Errorf("failed to set login lock: %w", err)
	}
	util.Warn("Login locked after repeated failures",
		util.String("username", username),
		util.Int("attempts", int(count)),
		util.Duration("lock", c.lockFor))
	return true, nil
}

func (c *RateLimitCache) IsLocked(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	locked, err := c.client.Exists(ctx, loginLockPrefix+username)
	if err != nil {
		return false, fmt.Errorf("failed to check login lock: %w", err)
	}
	return locked, nil
}

// Reset clears the counter after a successful login. An active lock is left to expire.
func (c *RateLimitCache) Reset(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, loginAttemptPrefix+username); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}
