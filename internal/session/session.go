// Package session holds the bearer tokens of a client. A Session is created at login,
// cleared at logout and passed to whatever needs authenticated access.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"election-service/internal/apiclient"
	"election-service/internal/models"
)

// ErrNotLoggedIn is returned when the role has no token; the caller sends the user to login.
var ErrNotLoggedIn = apiclient.ErrNotLoggedIn

// Session keeps the admin and voter logins independently.
type Session struct {
	AdminToken   string `json:"admin_token,omitempty"`
	AdminRefresh string `json:"admin_refresh,omitempty"`
	VoterToken   string `json:"voter_token,omitempty"`
	VoterRefresh string `json:"voter_refresh,omitempty"`
}

// Token returns the access token for role.
func (s *Session) Token(role models.Role) (string, error) {
	var token string
	switch role {
	case models.RoleAdmin:
		token = s.AdminToken
	case models.RoleVoter:
		token = s.VoterToken
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// Refresh returns the refresh token for role.
func (s *Session) Refresh(role models.Role) (string, error) {
	var token string
	switch role {
	case models.RoleAdmin:
		token = s.AdminRefresh
	case models.RoleVoter:
		token = s.VoterRefresh
	}
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// SetTokens stores a login. An empty refresh token keeps the current one, as a
// refresh response carries only the access token.
func (s *Session) SetTokens(role models.Role, pair *models.TokenPair) {
	switch role {
	case models.RoleAdmin:
		s.AdminToken = pair.Access
		if pair.Refresh != "" {
			s.AdminRefresh = pair.Refresh
		}
	case models.RoleVoter:
		s.VoterToken = pair.Access
		if pair.Refresh != "" {
			s.VoterRefresh = pair.Refresh
		}
	}
}

// Clear forgets role's tokens.
func (s *Session) Clear(role models.Role) {
	switch role {
	case models.RoleAdmin:
		s.AdminToken, s.AdminRefresh = "", ""
	case models.RoleVoter:
		s.VoterToken, s.VoterRefresh = "", ""
	}
}

func (s *Session) Empty() bool {
	return *s == Session{}
}

// Store persists a Session between CLI invocations.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// FileStore keeps the session as JSON in a file readable only by the owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is votectl/session.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "votectl", "session.json"), nil
}

func (f *FileStore) Path() string {
	return f.path
}

// Load returns an empty session when the file does not exist yet.
func (f *FileStore) Load(_ context.Context) (*Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", f.path, err)
	}
	return &s, nil
}

// Save writes atomically; an empty session removes the file.
func (f *FileStore) Save(_ context.Context, s *Session) error {
	if s.Empty() {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
