// Package session provides session management for signed-in users.
//
// This package defines the session model and the Store interface, with
// implementations for different backends:
//   - memory: In-memory storage for development/testing
//   - redis: Redis-backed storage for production multi-instance deployments
//   - file: File-based storage for CLI applications
//
// # Architecture
//
// A session binds an opaque bearer token (the session ID) to the user that
// signed in with an emailed code. Sessions expire automatically. The Store
// interface supports:
//   - Get/Set/Delete operations
//   - Automatic expiration checking
//   - Cleanup of expired sessions
//
// The CLI keeps a single session file holding the bearer token it received
// from a memeforge server, together with that server's address.
//
// # Usage
//
// Create a session store:
//
//	// Development
//	store := session.NewMemoryStore()
//
//	// Production
//	store := session.NewRedisStore(redisClient, "memeforge:session:")
//
//	// CLI
//	store, err := session.NewFileStore("")  // Uses ~/.config/memeforge/sessions/
//
// Manage sessions:
//
//	sess, err := session.New(userID, email, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, sessionID)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // Session not found or expired
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// Session stores user session data.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// CLI sessions only: the bearer token issued by Server.
	AccessToken string `json:"access_token,omitempty"`
	Server      string `json:"server,omitempty"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TTL returns the time left before the session expires.
func (s *Session) TTL() time.Duration {
	return time.Until(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (optional, may be no-op for Redis).
	Cleanup(ctx context.Context) error
}

// DefaultTTL is the default session duration.
const DefaultTTL = 30 * 24 * time.Hour

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New creates a new session for the given user.
func New(userID, email string, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// MockLocal creates a mock session for local development without authentication.
// This is used when --no-auth is enabled on the server.
func MockLocal() *Session {
	now := time.Now()
	return &Session{
		ID:        "local-session",
		UserID:    "local",
		Email:     "local@memeforge.invalid",
		ExpiresAt: now.Add(365 * 24 * time.Hour), // Never expires
		CreatedAt: now,
	}
}
