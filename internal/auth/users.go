package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Register when the email already has an account.
	ErrEmailTaken = errors.New("email already registered")
)

// User is a teacher account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore manages teacher accounts.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a UserStore backed by the given database.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Register creates an account. The email is normalized to lower case.
func (us *UserStore) Register(email, name, password string) (*User, error) {
	email = NormalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("invalid email address")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if len([]rune(name)) > 100 {
		return nil, fmt.Errorf("name must be at most 100 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = us.db.Exec(
		"INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Email, u.Name, hash, u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user for a matching email and password.
func (us *UserStore) Authenticate(email, password string) (*User, error) {
	email = NormalizeEmail(email)
	var u User
	var hash, createdAt string
	err := us.db.QueryRow(
		"SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &hash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	u.CreatedAt = parseTime(createdAt)

	us.db.Exec("UPDATE users SET last_login_at = ? WHERE id = ?", time.Now().UTC().Format(time.RFC3339), u.ID)
	return &u, nil
}

// Get returns the user with the given ID.
func (us *UserStore) Get(id string) (*User, error) {
	var u User
	var createdAt string
	err := us.db.QueryRow(
		"SELECT id, email, name, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks password strength: 8 to 72 bytes (the bcrypt
// limit) with at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return fmt.Errorf("password must be at most 72 bytes")
	}
	var hasLetter, hasDigit bool
	for _, c := range password {
		if unicode.IsLetter(c) {
			hasLetter = true
		}
		if unicode.IsDigit(c) {
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain letters and digits")
	}
	return nil
}

// HashPassword generates a bcrypt hash for the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// parseTime accepts the RFC 3339 strings this package writes and the
// "YYYY-MM-DD HH:MM:SS" form SQLite defaults produce.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
