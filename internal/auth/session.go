// Package auth provides teacher accounts, login sessions and login rate limiting.
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DefaultSessionExpiry is the default session duration (24 hours).
const DefaultSessionExpiry = 24 * time.Hour

// maxSessionAge bounds a session regardless of the sliding expiry window.
const maxSessionAge = 7 * 24 * time.Hour

// ErrSessionInvalid is returned for unknown or expired sessions.
var ErrSessionInvalid = errors.New("session invalid or expired")

// Session represents a user session stored in the database.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionManager handles session creation, validation, and cleanup.
type SessionManager struct {
	db     *sql.DB
	expiry time.Duration
}

// NewSessionManager creates a SessionManager with the given database and expiry duration.
// If expiry is zero, DefaultSessionExpiry is used.
func NewSessionManager(db *sql.DB, expiry time.Duration) *SessionManager {
	if expiry <= 0 {
		expiry = DefaultSessionExpiry
	}
	return &SessionManager{db: db, expiry: expiry}
}

// CreateSession creates a new session for the given user ID and stores it in the database.
func (sm *SessionManager) CreateSession(userID string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(sm.expiry)

	_, err = sm.db.Exec(
		"INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		id, userID, expiresAt.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// ValidateSession checks that a session exists and has not expired, then
// slides its expiry forward. Sessions older than seven days are removed.
func (sm *SessionManager) ValidateSession(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionInvalid
	}

	var s Session
	var expiresAtStr, createdAtStr string
	err := sm.db.QueryRow(
		"SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?",
		sessionID,
	).Scan(&s.ID, &s.UserID, &expiresAtStr, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	s.ExpiresAt = parseTime(expiresAtStr)
	s.CreatedAt = parseTime(createdAtStr)

	now := time.Now().UTC()
	if now.After(s.ExpiresAt) {
		return nil, ErrSessionInvalid
	}
	if now.Sub(s.CreatedAt) > maxSessionAge {
		sm.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
		return nil, ErrSessionInvalid
	}

	s.ExpiresAt = now.Add(sm.expiry)
	if _, err := sm.db.Exec(
		"UPDATE sessions SET expires_at = ? WHERE id = ?",
		s.ExpiresAt.Format(time.RFC3339), s.ID,
	); err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}
	return &s, nil
}

// CleanExpired removes all expired sessions from the database.
// Returns the number of sessions removed.
func (sm *SessionManager) CleanExpired() (int64, error) {
	now := time.Now().UTC()
	result, err := sm.db.Exec(
		"DELETE FROM sessions WHERE expires_at <= ? OR created_at <= ?",
		now.Format(time.RFC3339), now.Add(-maxSessionAge).Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// DeleteSession removes a specific session by ID.
func (sm *SessionManager) DeleteSession(sessionID string) error {
	_, err := sm.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// generateSessionID returns 32 random bytes as hex.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}
