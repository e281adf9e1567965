package memory

import (
	"context"
	"sync"
	"time"
)

// TokenRevocations is the in-process revocation list used when Redis is not configured.
type TokenRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewTokenRevocations() *TokenRevocations {
	return &TokenRevocations{revoked: make(map[string]time.Time), now: time.Now}
}

func (t *TokenRevocations) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, exp := range t.revoked {
		if !exp.After(now) {
			delete(t.revoked, id)
		}
	}
	t.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (t *TokenRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exp, ok := t.revoked[tokenID]
	return ok && exp.After(t.now()), nil
}

// LoginAttempts counts failed logins per username in process memory.
type LoginAttempts struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	lockFor     time.Duration
	failures    map[string]*attemptWindow
	locks       map[string]time.Time
	now         func() time.Time
}

type attemptWindow struct {
	count   int
	expires time.Time
}

func NewLoginAttempts(maxAttempts int, window, lockFor time.Duration) *LoginAttempts {
	return &LoginAttempts{
		maxAttempts: maxAttempts,
		window:      window,
		lockFor:     lockFor,
		failures:    make(map[string]*attemptWindow),
		locks:       make(map[string]time.Time),
		now:         time.Now,
	}
}

func (l *LoginAttempts) RecordFailure(_ context.Context, username string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.failures[username]
	if !ok || !w.expires.After(now) {
		w = &attemptWindow{expires: now.Add(l.window)}
		l.failures[username] = w
	}
	w.count++

	if w.count < l.maxAttempts {
		return false, nil
	}
	if until, locked := l.locks[username]; !locked || !until.After(now) {
		l.locks[username] = now.Add(l.lockFor)
	}
	return true, nil
}

func (l *LoginAttempts) IsLocked(_ context.Context, username string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.locks[username]
	return ok && until.After(l.now()), nil
}

func (l *LoginAttempts) Reset(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.failures, username)
	return nil
}
