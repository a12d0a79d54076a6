package auth

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Lockout policy.
const (
	maxUserFailures = 10
	userLockout     = time.Hour
	maxIPFailures   = 100
	ipLockout       = 24 * time.Hour
	attemptRetain   = 30 * 24 * time.Hour
)

// LockedError reports that logins are temporarily refused.
type LockedError struct {
	Reason string
	Until  time.Time
}

func (e *LockedError) Error() string {
	mins := int(time.Until(e.Until).Minutes())
	if mins < 1 {
		return fmt.Sprintf("%s, try again shortly", e.Reason)
	}
	return fmt.Sprintf("%s, try again in %d minutes", e.Reason, mins)
}

// LoginLimiter tracks failed login attempts and enforces lockouts:
//   - 10 consecutive failures for an email lock it for 1 hour
//   - 100 consecutive failures from an IP lock the IP for 1 day
type LoginLimiter struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewLoginLimiter creates a LoginLimiter backed by the given database.
func NewLoginLimiter(db *sql.DB) *LoginLimiter {
	return &LoginLimiter{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CheckAllowed returns nil if the login attempt is allowed, or a *LockedError.
func (ll *LoginLimiter) CheckAllowed(email, ip string) error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	now := ll.now()

	if ip != "" {
		until, err := ll.lockedUntil("ip", ip, maxIPFailures, ipLockout)
		if err != nil {
			return err
		}
		if now.Before(until) {
			return &LockedError{Reason: "too many failed logins from this address", Until: until}
		}
	}

	until, err := ll.lockedUntil("username", email, maxUserFailures, userLockout)
	if err != nil {
		return err
	}
	if now.Before(until) {
		return &LockedError{Reason: "too many failed logins", Until: until}
	}
	return nil
}

// lockedUntil returns the end of the lockout for a key, or the zero time
// when the current failure streak is shorter than limit. The streak counts
// failures after the key's last success; the lockout runs from the
// limit-th failure of the streak.
func (ll *LoginLimiter) lockedUntil(column, key string, limit int, lockout time.Duration) (time.Time, error) {
	var nthFailure sql.NullString
	err := ll.db.QueryRow(
		`SELECT created_at FROM login_attempts WHERE `+column+` = ? AND success = 0 AND id > (
			SELECT COALESCE(MAX(id), 0) FROM login_attempts WHERE `+column+` = ? AND success = 1
		) ORDER BY id ASC LIMIT 1 OFFSET ?`,
		key, key, limit-1,
	).Scan(&nthFailure)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query login attempts: %w", err)
	}
	if !nthFailure.Valid {
		return time.Time{}, nil
	}
	return parseTime(nthFailure.String).Add(lockout), nil
}

// RecordAttempt records a login attempt (success or failure).
func (ll *LoginLimiter) RecordAttempt(email, ip string, success bool) {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	successInt := 0
	if success {
		successInt = 1
	}
	ll.db.Exec(
		`INSERT INTO login_attempts (username, ip, success, created_at) VALUES (?, ?, ?, ?)`,
		email, ip, successInt, ll.now().Format(time.RFC3339),
	)
}

// CleanOld removes login attempt records older than 30 days.
func (ll *LoginLimiter) CleanOld() {
	cutoff := ll.now().Add(-attemptRetain).Format(time.RFC3339)
	ll.db.Exec(`DELETE FROM login_attempts WHERE created_at < ?`, cutoff)
}
