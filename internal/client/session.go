package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shopit-io/shopit/internal/models"
)

// ErrNoSession means no session is persisted locally.
var ErrNoSession = errors.New("no session found")

// Session is the locally persisted authentication state: the token returned
// by the server plus the user it belongs to.
type Session struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	SavedAt time.Time   `json:"saved_at"`
}

// Expired reports whether the session token's expiry has passed. The claims
// are read without signature verification; only the server can truly judge
// a token, this is just the local guard.
func (s *Session) Expired(now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.Token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(now)
}

// SessionStore persists the session as a JSON file.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store at the given file path
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// DefaultSessionPath returns ~/.shopit/session.json
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".shopit", "session.json"), nil
}

// Load reads the persisted session. Returns ErrNoSession when absent.
func (s *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("corrupt session file: %w", err)
	}
	if session.Token == "" {
		return nil, ErrNoSession
	}
	return &session, nil
}

// Save persists the session with owner-only permissions.
func (s *SessionStore) Save(session *Session) error {
	if session.SavedAt.IsZero() {
		session.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the persisted session. Clearing an absent session is not an
// error.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
